package model

import "time"

// Trip represents a scheduled departure of a route on a specific date.
// A trip is the unit the reservation core operates on: seat availability
// is tracked per (route, departure date) pair.
//
// Fields:
//
//	ID             – primary key identifier.
//	RouteID        – public route identifier, e.g. "R1".
//	Origin         – origin city name.
//	Destination    – destination city name.
//	DepartureDate  – calendar date of departure in "2006-01-02" form.
//	DepartsAt      – full departure timestamp in UTC.
//	BusTemplateID  – layout template used for this trip.
//	BasePriceCents – base fare before per-seat adjustments, in cents.
type Trip struct {
	ID             uint64    // trips.id
	RouteID        string    // trips.route_id
	Origin         string    // trips.origin
	Destination    string    // trips.destination
	DepartureDate  string    // trips.departure_date
	DepartsAt      time.Time // trips.departs_at
	BusTemplateID  uint64    // trips.bus_template_id
	BasePriceCents uint32    // trips.base_price_cents
}

// TripPlan bundles everything the ledger needs to seed the in-memory
// seat arena for one trip: the trip row, its layout template and the
// ordered seat list with current statuses.
type TripPlan struct {
	Trip     Trip        // the scheduled trip
	Template BusTemplate // static layout metadata
	Seats    []Seat      // seats in physical layout order
}

// SeatAvailability is a point-in-time snapshot of every seat's status
// for one trip.  Snapshots are read-only copies; mutating one has no
// effect on the ledger.
type SeatAvailability struct {
	RouteID       string      // route the snapshot belongs to
	DepartureDate string      // departure date the snapshot belongs to
	Template      BusTemplate // layout metadata for rendering
	Seats         []Seat      // seats in physical layout order
}
