package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/bus-seat-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/bus-seat-reservation/internal/middleware" // import middleware for session validation
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems use this endpoint to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterSession registers the anonymous session issuance endpoint.
// Booking-flow clients call it once and present the returned token on
// every hold operation.
func RegisterSession(e *echo.Echo, s *handler.SessionHandler) {
	e.POST("/v1/session", s.CreateSession)
}

// RegisterPublic registers the unauthenticated browse endpoints.  The
// cache middleware (Redis response cache) applies to trip browsing
// only; the seat availability endpoint is registered uncached so every
// caller reads the ledger's current truth.
func RegisterPublic(e *echo.Echo, t *handler.TripHandler, r *handler.ReservationHandler, cache echo.MiddlewareFunc) {
	// Browse scheduled trips, optionally filtered by route and date.
	e.GET("/v1/trips", t.SearchTrips, cache)
	// Point-in-time seat availability for one trip.  Never cached.
	e.GET("/v1/trips/:route/:date/seats", r.GetAvailability)
}

// RegisterReservation registers the hold manager's mutating operations.
// All of them require a valid session token, whose subject becomes the
// owner token of the holds, and sit behind the rate limiter.
func RegisterReservation(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.Session(jwtSecret))
	g.Use(limiter)
	// Claim up to five seats on a trip under a time-limited lease.
	g.POST("/trips/:route/:date/hold", r.HoldSeats)
	// Give a lease up early.  Always answers 200, even for unknown holds.
	g.POST("/holds/:id/release", r.ReleaseHold)
	// Convert a lease into a booking after payment confirmation.
	g.POST("/holds/:id/commit", r.CommitHold)
}
