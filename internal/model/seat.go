package model

// SeatStatus enumerates the availability states a seat can be in for a
// particular trip.  Exactly one holder (a hold or a booking) may own a
// seat that is not AVAILABLE; the status and the owning hold are always
// updated together inside the ledger.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // free to be claimed by a hold
	SeatHeld      SeatStatus = "HELD"      // temporarily claimed by an active hold
	SeatBooked    SeatStatus = "BOOKED"    // permanently sold; terminal for the trip
)

// Seat represents a single physical seat on a bus for one trip.  Seats
// are created when a trip is scheduled and their order mirrors the
// physical layout of the bus (floor, then row, then column).
//
// Fields:
//
//	ID         – stable identifier of the trip_seats row.
//	Label      – human readable seat code shown to travellers, e.g. "A1" or "12-L".
//	Floor      – floor number, 1 for single deck buses.
//	Row        – row number within the floor.
//	Column     – column number within the row.
//	Status     – current availability status (AVAILABLE, HELD, BOOKED).
//	PriceCents – final fare for this seat on this trip, in cents.
type Seat struct {
	ID         uint64     // trip_seats.id
	Label      string     // trip_seats.label
	Floor      uint8      // trip_seats.floor
	Row        uint8      // trip_seats.row_no
	Column     uint8      // trip_seats.col_no
	Status     SeatStatus // trip_seats.status
	PriceCents uint32     // trip_seats.price_cents
}
