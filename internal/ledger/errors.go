// Package ledger implements the authoritative seat hold ledger: the only
// place seat-level mutual exclusion is enforced.  It owns the mapping from
// hold IDs to holds and from seats to their current holder, and every seat
// status mutation in the system goes through it.
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTripNotFound is returned when no trip is scheduled for the requested
// route and departure date.  Handlers should translate this into a 404.
var ErrTripNotFound = errors.New("trip not found")

// ErrHoldNotFound is returned by Commit when the hold ID is unknown to the
// ledger, either because it never existed or because it already reached a
// terminal state and was removed.
var ErrHoldNotFound = errors.New("hold not found")

// ErrHoldExpired is returned by Commit when the hold's TTL has elapsed.
// The seats have been returned to AVAILABLE and the caller must restart
// seat selection.  Handlers should translate this into a 410.
var ErrHoldExpired = errors.New("hold expired")

// ErrNoSeats is returned when a hold request names no seats.
var ErrNoSeats = errors.New("no seats requested")

// ErrTooManySeats is returned when a hold request exceeds the per-hold
// seat limit.
var ErrTooManySeats = errors.New("too many seats requested")

// UnknownSeatError is returned when a hold request names seat labels that
// do not exist on the trip.  It is a validation failure, not a conflict:
// the request is malformed and retrying it unchanged will never succeed.
type UnknownSeatError struct {
	Labels []string // offending labels, in request order
}

func (e *UnknownSeatError) Error() string {
	return fmt.Sprintf("unknown seats: %s", strings.Join(e.Labels, ", "))
}

// ConflictError is returned when one or more requested seats are not
// AVAILABLE at hold time.  It carries exactly the conflicting subset so
// the caller can highlight only those seats; the remaining requested
// seats are left untouched.  Conflicts are expected domain outcomes,
// recoverable by refreshing availability and re-selecting.
type ConflictError struct {
	Seats []string // conflicting seat labels, in request order
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Seats, ", "))
}
