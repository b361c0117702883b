package model

import "time"

// Booking is the durable record created when a hold is committed after
// payment confirmation.  Unlike holds, bookings are persisted and
// survive restarts; their seats stay BOOKED for the trip's lifetime.
//
// Fields:
//
//	ID         – primary key identifier.
//	Reference  – public booking reference handed to the traveller.
//	HoldID     – the hold this booking was converted from.
//	OwnerToken – session that committed the hold.
//	TripID     – the booked trip.
//	SeatIDs    – the booked seats.
//	TotalCents – total amount charged, in cents.
//	CreatedAt  – commit timestamp.
type Booking struct {
	ID         uint64    // bookings.id
	Reference  string    // bookings.reference
	HoldID     string    // bookings.hold_id
	OwnerToken string    // bookings.owner_token
	TripID     uint64    // bookings.trip_id
	SeatIDs    []uint64  // booking_seats.seat_id rows
	TotalCents uint32    // bookings.total_cents
	CreatedAt  time.Time // bookings.created_at
}
