package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-seat-reservation/internal/ledger"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// TripRepo provides read access to the trip catalog: trips, bus
// templates and per-trip seat rows.  The catalog is read-only from the
// reservation core's perspective; the only seat mutation that ever
// reaches the database is the BOOKED flip performed by BookingRepo.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo returns a new TripRepo bound to the provided database.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span repositories.
func (r *TripRepo) DB() *sql.DB { return r.db }

// GetByRouteAndDate fetches the trip scheduled for a route on a
// departure date.  Returns ledger.ErrTripNotFound when no such trip
// exists.
func (r *TripRepo) GetByRouteAndDate(ctx context.Context, routeID, departureDate string) (*model.Trip, error) {
	const q = `SELECT id, route_id, origin, destination, departure_date, departs_at, bus_template_id, base_price_cents
               FROM trips
               WHERE route_id = ? AND departure_date = ?`
	var t model.Trip
	err := r.db.QueryRowContext(ctx, q, routeID, departureDate).Scan(
		&t.ID, &t.RouteID, &t.Origin, &t.Destination, &t.DepartureDate,
		&t.DepartsAt, &t.BusTemplateID, &t.BasePriceCents,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTemplate fetches a bus layout template by id.  Returns
// ErrTemplateNotFound when the template does not exist.
func (r *TripRepo) GetTemplate(ctx context.Context, id uint64) (*model.BusTemplate, error) {
	const q = `SELECT id, name, floors, rows, column_pattern, seat_count
               FROM bus_templates WHERE id = ?`
	var bt model.BusTemplate
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&bt.ID, &bt.Name, &bt.Floors, &bt.Rows, &bt.ColumnPattern, &bt.SeatCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bt, nil
}

// SeatsByTrip returns every seat of the trip in physical layout order
// (floor, then row, then column).
func (r *TripRepo) SeatsByTrip(ctx context.Context, tripID uint64) ([]model.Seat, error) {
	const q = `SELECT id, label, floor, row_no, col_no, status, price_cents
               FROM trip_seats
               WHERE trip_id = ?
               ORDER BY floor, row_no, col_no`
	rows, err := r.db.QueryContext(ctx, q, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.Label, &s.Floor, &s.Row, &s.Column, &s.Status, &s.PriceCents); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// LoadTrip assembles the full seat plan for a trip.  It implements
// ledger.TripLoader and is how the in-memory ledger seeds a trip's
// seat arena on first access.  Seats persisted as BOOKED (from earlier
// committed bookings) come back BOOKED; holds are leases and are never
// persisted, so every non-booked seat loads as AVAILABLE.
func (r *TripRepo) LoadTrip(ctx context.Context, routeID, departureDate string) (*model.TripPlan, error) {
	trip, err := r.GetByRouteAndDate(ctx, routeID, departureDate)
	if err != nil {
		return nil, err
	}
	tmpl, err := r.GetTemplate(ctx, trip.BusTemplateID)
	if err != nil {
		return nil, err
	}
	seats, err := r.SeatsByTrip(ctx, trip.ID)
	if err != nil {
		return nil, err
	}
	for i := range seats {
		if seats[i].Status != model.SeatBooked {
			seats[i].Status = model.SeatAvailable
		}
	}
	return &model.TripPlan{Trip: *trip, Template: *tmpl, Seats: seats}, nil
}

// Search lists trips matching the optional route and date filters,
// soonest departure first.  Empty filter values match everything.  Used
// by the public browse endpoints only.
func (r *TripRepo) Search(ctx context.Context, routeID, departureDate string) ([]model.Trip, error) {
	q := `SELECT id, route_id, origin, destination, departure_date, departs_at, bus_template_id, base_price_cents
          FROM trips WHERE 1=1`
	args := make([]interface{}, 0, 2)
	if routeID != "" {
		q += " AND route_id = ?"
		args = append(args, routeID)
	}
	if departureDate != "" {
		q += " AND departure_date = ?"
		args = append(args, departureDate)
	}
	q += " ORDER BY departs_at LIMIT 100"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var trips []model.Trip
	for rows.Next() {
		var t model.Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.Origin, &t.Destination, &t.DepartureDate,
			&t.DepartsAt, &t.BusTemplateID, &t.BasePriceCents); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trips, nil
}
