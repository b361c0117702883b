// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting SQL driver errors directly.
package repository

import "errors"

// ErrTemplateNotFound is returned when a trip references a bus template
// that does not exist.  This indicates broken catalog data: a trip
// without a valid template cannot produce a well-formed availability
// snapshot.
var ErrTemplateNotFound = errors.New("bus template not found")

// ErrDuplicateBooking is returned when a booking insert collides on the
// hold_id unique key, i.e. the same committed hold is being persisted
// twice.  Callers treat this as success of the earlier insert.
var ErrDuplicateBooking = errors.New("booking already persisted for hold")
