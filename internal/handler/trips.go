package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// TripHandler exposes the public, unauthenticated trip browse
// endpoints.  These serve static catalog data and sit behind the Redis
// response cache; seat availability is never served from here.
type TripHandler struct {
	Trips *repository.TripRepo // read access to the trip catalog
}

// NewTripHandler constructs a TripHandler.
func NewTripHandler(trips *repository.TripRepo) *TripHandler {
	if trips == nil {
		panic("nil repository passed to NewTripHandler")
	}
	return &TripHandler{Trips: trips}
}

// tripView is the JSON shape of one trip in a browse response.
type tripView struct {
	RouteID        string `json:"route_id"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartureDate  string `json:"departure_date"`
	DepartsAt      string `json:"departs_at"`
	BasePriceCents uint32 `json:"base_price_cents"`
}

// SearchTrips handles GET /v1/trips.  Optional query parameters `route`
// and `date` narrow the listing; without filters it returns the next
// hundred departures.
func (h *TripHandler) SearchTrips(c echo.Context) error {
	trips, err := h.Trips.Search(c.Request().Context(), c.QueryParam("route"), c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trips"})
	}
	items := make([]tripView, 0, len(trips))
	for _, t := range trips {
		items = append(items, tripView{
			RouteID:        t.RouteID,
			Origin:         t.Origin,
			Destination:    t.Destination,
			DepartureDate:  t.DepartureDate,
			DepartsAt:      t.DepartsAt.UTC().Format(time.RFC3339),
			BasePriceCents: t.BasePriceCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
