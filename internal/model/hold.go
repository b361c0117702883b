package model

import "time"

// HoldState enumerates the lifecycle states of a hold.  ACTIVE is the
// only non-terminal state; once a hold leaves ACTIVE it never returns.
type HoldState string

const (
	HoldActive    HoldState = "ACTIVE"    // lease is live, seats are HELD
	HoldReleased  HoldState = "RELEASED"  // given up explicitly by the owner
	HoldExpired   HoldState = "EXPIRED"   // reaped after its TTL elapsed
	HoldCommitted HoldState = "COMMITTED" // converted into a booking
)

// Hold is a time-limited exclusive claim on a set of seats of one trip.
// The seat set is fixed at creation and the expiry instant is never
// extended; the only way to keep the seats past ExpiresAt is to commit.
//
// Fields:
//
//	ID            – opaque unique identifier returned to the client; never reused.
//	OwnerToken    – session token of the requesting client; opaque to the core.
//	RouteID       – route of the trip the seats belong to.
//	DepartureDate – departure date of the trip.
//	SeatIDs       – ids of the claimed seats, immutable for the hold's lifetime.
//	SeatLabels    – labels of the claimed seats, for display and events.
//	TotalCents    – combined fare of the claimed seats.
//	ExpiresAt     – absolute expiry instant, set to now + TTL at creation.
//	State         – current lifecycle state.
//	CreatedAt     – when the hold was granted.
type Hold struct {
	ID            string    // opaque hold identifier
	OwnerToken    string    // requesting session
	RouteID       string    // claimed trip route
	DepartureDate string    // claimed trip date
	SeatIDs       []uint64  // claimed seat ids
	SeatLabels    []string  // claimed seat labels
	TotalCents    uint32    // combined fare
	ExpiresAt     time.Time // absolute expiry instant (UTC)
	State         HoldState // lifecycle state
	CreatedAt     time.Time // creation instant (UTC)
}

// Terminal reports whether the hold has left the ACTIVE state.
func (h *Hold) Terminal() bool { return h.State != HoldActive }
