package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/ledger"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	queue_publisher "github.com/iliyamo/bus-seat-reservation/internal/service"
)

// BookingStore persists committed holds.  The production implementation
// is repository.BookingRepo; tests supply a fake.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
}

// ReservationHandler exposes the hold manager's four operations over
// HTTP: hold, release, commit and availability refresh.  All methods
// assume the session middleware has already validated the caller's
// token; the session subject is the hold's owner token.
type ReservationHandler struct {
	Ledger   *ledger.Ledger // authoritative hold ledger
	Bookings BookingStore   // durable booking persistence

	// publishConfirmed is swapped out in tests; it defaults to the
	// RabbitMQ publisher and is always best-effort.
	publishConfirmed func(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// NewReservationHandler constructs a ReservationHandler.  Both
// dependencies must be non-nil.
func NewReservationHandler(l *ledger.Ledger, bookings BookingStore) *ReservationHandler {
	if l == nil || bookings == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{
		Ledger:           l,
		Bookings:         bookings,
		publishConfirmed: queue_publisher.PublishBookingConfirmed,
	}
}

// holdRequest is the body of POST /v1/trips/:route/:date/hold.  The
// seat list is capped at five per product policy; a zero TTL selects
// the server default of 900 seconds.
type holdRequest struct {
	Seats      []string `json:"seats" validate:"required,min=1,max=5,dive,required"`
	TTLSeconds int      `json:"ttl_seconds" validate:"omitempty,min=1,max=1800"`
}

// HoldSeats handles POST /v1/trips/:route/:date/hold.  It atomically
// claims the requested seats for the caller's session.  On success it
// returns 201 with the lease; when any seat is unavailable it returns
// 409 listing exactly the conflicting subset so the client can
// highlight only those seats and refresh.
func (h *ReservationHandler) HoldSeats(c echo.Context) error {
	owner, err := getOwnerToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	routeID, date := c.Param("route"), c.Param("date")
	if routeID == "" || date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip"})
	}
	var body holdRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats must list between 1 and 5 seat labels"})
	}

	ttl := time.Duration(body.TTLSeconds) * time.Second
	grant, err := h.Ledger.Hold(c.Request().Context(), routeID, date, owner, body.Seats, ttl)
	if err != nil {
		var conflict *ledger.ConflictError
		if errors.As(err, &conflict) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":             "seats unavailable",
				"conflicting_seats": conflict.Seats,
			})
		}
		var unknown *ledger.UnknownSeatError
		if errors.As(err, &unknown) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":         "unknown seats",
				"unknown_seats": unknown.Labels,
			})
		}
		if errors.Is(err, ledger.ErrNoSeats) || errors.Is(err, ledger.ErrTooManySeats) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if errors.Is(err, ledger.ErrTripNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to hold seats"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":    grant.HoldID,
		"expires_at": grant.ExpiresAt.Format(time.RFC3339),
	})
}

// ReleaseHold handles POST /v1/holds/:id/release.  Release is called
// speculatively from back navigation and abandoned flows, so it always
// answers 200: releasing an unknown, expired or already released hold
// is a no-op, never an error.
func (h *ReservationHandler) ReleaseHold(c echo.Context) error {
	if _, err := getOwnerToken(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	released := h.Ledger.Release(c.Param("id"))
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// CommitHold handles POST /v1/holds/:id/commit.  It is called once
// payment is confirmed: the hold's seats flip from HELD to BOOKED and a
// durable booking is written.  A hold the reaper already expired
// answers 410 Gone; the caller must restart seat selection.
func (h *ReservationHandler) CommitHold(c echo.Context) error {
	owner, err := getOwnerToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Ledger.Commit(c.Param("id"))
	if err != nil {
		if errors.Is(err, ledger.ErrHoldExpired) {
			return c.JSON(http.StatusGone, echo.Map{"error": "hold expired"})
		}
		if errors.Is(err, ledger.ErrHoldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit hold"})
	}

	now := time.Now().UTC()
	booking := &model.Booking{
		Reference:  uuid.NewString(),
		HoldID:     res.Hold.ID,
		OwnerToken: owner,
		TripID:     res.Trip.ID,
		SeatIDs:    res.Hold.SeatIDs,
		TotalCents: res.Hold.TotalCents,
		CreatedAt:  now,
	}
	if err := h.Bookings.Create(c.Request().Context(), booking); err != nil {
		// The ledger commit already happened; the seats are BOOKED.  The
		// event (booking_id 0) is the reconciliation record for the lost
		// insert, so it must go out even though the request fails.
		log.Printf("commit: booking persist failed for hold %s: %v", res.Hold.ID, err)
		if perr := h.publishConfirmed(c.Request().Context(), confirmedEvent(booking, res.Hold, now)); perr != nil {
			log.Printf("commit: publish booking.confirmed failed: %v", perr)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to persist booking"})
	}

	if err := h.publishConfirmed(c.Request().Context(), confirmedEvent(booking, res.Hold, now)); err != nil {
		log.Printf("commit: publish booking.confirmed failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":  booking.ID,
		"reference":   booking.Reference,
		"total_cents": booking.TotalCents,
	})
}

// confirmedEvent builds the booking.confirmed payload for a committed
// hold.  BookingID is zero when the durable insert did not complete.
func confirmedEvent(b *model.Booking, h model.Hold, now time.Time) queue.BookingConfirmedEvent {
	return queue.BookingConfirmedEvent{
		BookingID:     b.ID,
		Reference:     b.Reference,
		HoldID:        h.ID,
		OwnerToken:    b.OwnerToken,
		RouteID:       h.RouteID,
		DepartureDate: h.DepartureDate,
		SeatLabels:    h.SeatLabels,
		TotalCents:    h.TotalCents,
		ConfirmedAt:   now.Format(time.RFC3339),
	}
}

// seatView is the JSON shape of one seat in an availability response.
type seatView struct {
	ID         uint64 `json:"id"`
	Label      string `json:"label"`
	Floor      uint8  `json:"floor"`
	Row        uint8  `json:"row"`
	Column     uint8  `json:"column"`
	Status     string `json:"status"`
	PriceCents uint32 `json:"price_cents"`
}

// templateView is the JSON shape of the layout template in an
// availability response.
type templateView struct {
	Name          string `json:"name"`
	Floors        uint8  `json:"floors"`
	Rows          uint8  `json:"rows"`
	ColumnPattern string `json:"column_pattern"`
	SeatCount     uint16 `json:"seat_count"`
}

// GetAvailability handles GET /v1/trips/:route/:date/seats.  It returns
// a point-in-time snapshot of every seat's status straight from the
// ledger.  This endpoint is deliberately never cached: once a seat
// transition commits, every caller must see it.
func (h *ReservationHandler) GetAvailability(c echo.Context) error {
	snap, err := h.Ledger.Snapshot(c.Request().Context(), c.Param("route"), c.Param("date"))
	if err != nil {
		if errors.Is(err, ledger.ErrTripNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load availability"})
	}
	seats := make([]seatView, 0, len(snap.Seats))
	for _, s := range snap.Seats {
		seats = append(seats, seatView{
			ID:         s.ID,
			Label:      s.Label,
			Floor:      s.Floor,
			Row:        s.Row,
			Column:     s.Column,
			Status:     string(s.Status),
			PriceCents: s.PriceCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"route_id":       snap.RouteID,
		"departure_date": snap.DepartureDate,
		"template": templateView{
			Name:          snap.Template.Name,
			Floors:        snap.Template.Floors,
			Rows:          snap.Template.Rows,
			ColumnPattern: snap.Template.ColumnPattern,
			SeatCount:     snap.Template.SeatCount,
		},
		"seats": seats,
	})
}
