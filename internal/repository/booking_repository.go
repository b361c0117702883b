package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// BookingRepo persists committed holds as durable bookings.  A booking
// write covers three tables in one transaction: the bookings row, its
// booking_seats rows and the BOOKED status flip on trip_seats, so the
// database can never show a booking whose seats are still sellable.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts the booking and its seats and marks the trip seats
// BOOKED, all within a single transaction.  The booking's ID field is
// populated on success.  A unique-key collision on hold_id means the
// same committed hold was already persisted; that case returns
// ErrDuplicateBooking and leaves the earlier row untouched.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO bookings (reference, hold_id, owner_token, trip_id, total_cents, created_at)
                 VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, b.Reference, b.HoldID, b.OwnerToken, b.TripID, b.TotalCents,
		b.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrDuplicateBooking
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.SeatIDs) > 0 {
		q := `INSERT INTO booking_seats (booking_id, trip_id, seat_id) VALUES `
		args := make([]interface{}, 0, len(b.SeatIDs)*3)
		for i, sid := range b.SeatIDs {
			if i > 0 {
				q += ","
			}
			q += "(?, ?, ?)"
			args = append(args, b.ID, b.TripID, sid)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}

		up := `UPDATE trip_seats SET status = 'BOOKED' WHERE trip_id = ? AND id IN (`
		upArgs := make([]interface{}, 0, len(b.SeatIDs)+1)
		upArgs = append(upArgs, b.TripID)
		for i, sid := range b.SeatIDs {
			if i > 0 {
				up += ","
			}
			up += "?"
			upArgs = append(upArgs, sid)
		}
		up += ")"
		if _, err := tx.ExecContext(ctx, up, upArgs...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
