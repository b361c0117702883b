package handler

import (
	"context"

	"github.com/iliyamo/bus-seat-reservation/internal/queue"
)

// SetPublishConfirmed lets external-package tests swap the confirmed-event
// publisher, which is an unexported field.
func SetPublishConfirmed(h *ReservationHandler, fn func(ctx context.Context, ev queue.BookingConfirmedEvent) error) {
	h.publishConfirmed = fn
}
