// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a hold is committed and its
// booking persisted.  It carries enough information for downstream
// consumers to log, notify, or reconcile without querying the primary
// database.
type BookingConfirmedEvent struct {
	BookingID     uint64   `json:"booking_id"`
	Reference     string   `json:"reference"`
	HoldID        string   `json:"hold_id"`
	OwnerToken    string   `json:"owner_token"`
	RouteID       string   `json:"route_id"`
	DepartureDate string   `json:"departure_date"`
	SeatLabels    []string `json:"seats"`
	TotalCents    uint32   `json:"total_cents"`
	ConfirmedAt   string   `json:"confirmed_at"`
}

// HoldExpiredEvent is published when the reaper (or a lazy reap on the
// request path) expires a hold.  Expiry is distinguished from explicit
// release for observability: it means the traveller ran out of time,
// not that they backed out.
type HoldExpiredEvent struct {
	HoldID        string   `json:"hold_id"`
	OwnerToken    string   `json:"owner_token"`
	RouteID       string   `json:"route_id"`
	DepartureDate string   `json:"departure_date"`
	SeatLabels    []string `json:"seats"`
	ExpiredAt     string   `json:"expired_at"`
}
