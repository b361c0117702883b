package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	. "github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/ledger"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/router"
)

type fakeLoader struct{}

func (fakeLoader) LoadTrip(_ context.Context, routeID, departureDate string) (*model.TripPlan, error) {
	if routeID != "R1" || departureDate != "2026-01-20" {
		return nil, ledger.ErrTripNotFound
	}
	return &model.TripPlan{
		Trip:     model.Trip{ID: 7, RouteID: routeID, DepartureDate: departureDate},
		Template: model.BusTemplate{ID: 1, Name: "Single Deck 2+2", Floors: 1, Rows: 2, ColumnPattern: "2+2", SeatCount: 3},
		Seats: []model.Seat{
			{ID: 1, Label: "A1", Floor: 1, Row: 1, Column: 1, Status: model.SeatAvailable, PriceCents: 2500},
			{ID: 2, Label: "A2", Floor: 1, Row: 1, Column: 2, Status: model.SeatAvailable, PriceCents: 2500},
			{ID: 3, Label: "B1", Floor: 1, Row: 2, Column: 1, Status: model.SeatAvailable, PriceCents: 2200},
		},
	}, nil
}

type fakeBookingStore struct {
	created []*model.Booking
	fail    error // returned by Create when set
}

func (f *fakeBookingStore) Create(_ context.Context, b *model.Booking) error {
	if f.fail != nil {
		return f.fail
	}
	b.ID = uint64(len(f.created) + 1)
	f.created = append(f.created, b)
	return nil
}

type env struct {
	e        *echo.Echo
	handler  *ReservationHandler
	bookings *fakeBookingStore
	clock    *clockwork.FakeClock
	events   []queue.BookingConfirmedEvent
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC))
	ldg := ledger.New(fakeLoader{}, ledger.DefaultConfig(), clock, nil)
	bookings := &fakeBookingStore{}
	h := NewReservationHandler(ldg, bookings)
	ev := &env{e: echo.New(), handler: h, bookings: bookings, clock: clock}
	SetPublishConfirmed(h, func(_ context.Context, e queue.BookingConfirmedEvent) error {
		ev.events = append(ev.events, e)
		return nil
	})
	ev.e.Validator = NewValidator()
	return ev
}

// call runs a handler with the session already resolved, the way the
// session middleware leaves the context.
func (ev *env) call(t *testing.T, method, path, body, owner string, params map[string]string, fn echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := ev.e.NewContext(req, rec)
	if owner != "" {
		c.Set("session_id", owner)
	}
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if err := fn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}

func (ev *env) hold(t *testing.T, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	return ev.call(t, http.MethodPost, "/v1/trips/R1/2026-01-20/hold", body, owner,
		map[string]string{"route": "R1", "date": "2026-01-20"}, ev.handler.HoldSeats)
}

func TestHoldSeatsSuccess(t *testing.T) {
	ev := newEnv(t)
	rec := ev.hold(t, "owner-1", `{"seats":["A1","A2"],"ttl_seconds":900}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body=%s)", rec.Code, rec.Body.String())
	}
	m := decode(t, rec)
	if m["hold_id"] == "" || m["hold_id"] == nil {
		t.Fatal("missing hold_id")
	}
	want := ev.clock.Now().UTC().Add(900 * time.Second).Format(time.RFC3339)
	if m["expires_at"] != want {
		t.Fatalf("expires_at = %v, want %v", m["expires_at"], want)
	}
}

func TestHoldSeatsConflict(t *testing.T) {
	ev := newEnv(t)
	if rec := ev.hold(t, "owner-1", `{"seats":["A2"]}`); rec.Code != http.StatusCreated {
		t.Fatalf("setup hold: %d", rec.Code)
	}
	rec := ev.hold(t, "owner-2", `{"seats":["A1","A2"]}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	m := decode(t, rec)
	seats, _ := m["conflicting_seats"].([]interface{})
	if len(seats) != 1 || seats[0] != "A2" {
		t.Fatalf("conflicting_seats = %v, want [A2]", m["conflicting_seats"])
	}
}

func TestHoldSeatsValidation(t *testing.T) {
	ev := newEnv(t)
	if rec := ev.hold(t, "owner-1", `{"seats":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty seats: status = %d, want 400", rec.Code)
	}
	if rec := ev.hold(t, "owner-1", `{"seats":["A1","A2","B1","X1","X2","X3"]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("six seats: status = %d, want 400", rec.Code)
	}
	if rec := ev.hold(t, "owner-1", `{"seats":["Z9"]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown seat: status = %d, want 400", rec.Code)
	}
	if rec := ev.hold(t, "", `{"seats":["A1"]}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no session: status = %d, want 401", rec.Code)
	}
	rec := ev.call(t, http.MethodPost, "/v1/trips/R9/2026-01-20/hold", `{"seats":["A1"]}`, "owner-1",
		map[string]string{"route": "R9", "date": "2026-01-20"}, ev.handler.HoldSeats)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown trip: status = %d, want 404", rec.Code)
	}
}

func TestReleaseAlwaysOk(t *testing.T) {
	ev := newEnv(t)
	rec := ev.hold(t, "owner-1", `{"seats":["A1"]}`)
	m := decode(t, rec)
	holdID, _ := m["hold_id"].(string)

	rel := func(id string) *httptest.ResponseRecorder {
		return ev.call(t, http.MethodPost, "/v1/holds/"+id+"/release", "", "owner-1",
			map[string]string{"id": id}, ev.handler.ReleaseHold)
	}
	if rec := rel(holdID); rec.Code != http.StatusOK {
		t.Fatalf("release: status = %d, want 200", rec.Code)
	}
	// Releasing again, or releasing garbage, still answers 200.
	if rec := rel(holdID); rec.Code != http.StatusOK {
		t.Fatalf("second release: status = %d, want 200", rec.Code)
	}
	if rec := rel("no-such-hold"); rec.Code != http.StatusOK {
		t.Fatalf("unknown release: status = %d, want 200", rec.Code)
	}
}

func TestCommitPersistsBookingAndPublishes(t *testing.T) {
	ev := newEnv(t)
	rec := ev.hold(t, "owner-1", `{"seats":["A1","B1"]}`)
	holdID, _ := decode(t, rec)["hold_id"].(string)

	com := ev.call(t, http.MethodPost, "/v1/holds/"+holdID+"/commit", "", "owner-1",
		map[string]string{"id": holdID}, ev.handler.CommitHold)
	if com.Code != http.StatusOK {
		t.Fatalf("commit: status = %d (body=%s)", com.Code, com.Body.String())
	}
	m := decode(t, com)
	if m["total_cents"] != float64(4700) {
		t.Fatalf("total_cents = %v, want 4700", m["total_cents"])
	}
	if len(ev.bookings.created) != 1 {
		t.Fatalf("bookings persisted = %d, want 1", len(ev.bookings.created))
	}
	b := ev.bookings.created[0]
	if b.TripID != 7 || b.OwnerToken != "owner-1" || len(b.SeatIDs) != 2 {
		t.Fatalf("booking = %+v, want trip 7 / owner-1 / 2 seats", b)
	}
	if len(ev.events) != 1 || ev.events[0].HoldID != holdID {
		t.Fatalf("events = %+v, want one booking.confirmed for %s", ev.events, holdID)
	}
}

func TestCommitPersistFailureStillPublishes(t *testing.T) {
	ev := newEnv(t)
	rec := ev.hold(t, "owner-1", `{"seats":["A1"]}`)
	holdID, _ := decode(t, rec)["hold_id"].(string)

	ev.bookings.fail = errors.New("mysql is down")
	com := ev.call(t, http.MethodPost, "/v1/holds/"+holdID+"/commit", "", "owner-1",
		map[string]string{"id": holdID}, ev.handler.CommitHold)
	if com.Code != http.StatusInternalServerError {
		t.Fatalf("commit with failing store: status = %d, want 500", com.Code)
	}
	// The ledger already booked the seats; the event is the only record
	// of the commit, so it must be published anyway.
	if len(ev.events) != 1 {
		t.Fatalf("events = %d, want 1 reconciliation event", len(ev.events))
	}
	if e := ev.events[0]; e.HoldID != holdID || e.BookingID != 0 || e.Reference == "" {
		t.Fatalf("event = %+v, want hold %s with zero booking id and a reference", e, holdID)
	}
	// The seats really are booked despite the 500.
	avail := ev.call(t, http.MethodGet, "/v1/trips/R1/2026-01-20/seats", "", "",
		map[string]string{"route": "R1", "date": "2026-01-20"}, ev.handler.GetAvailability)
	for _, s := range decode(t, avail)["seats"].([]interface{}) {
		sm := s.(map[string]interface{})
		if sm["label"] == "A1" && sm["status"] != "BOOKED" {
			t.Fatalf("A1 = %v, want BOOKED", sm["status"])
		}
	}
}

func TestCommitExpiredAnswers410(t *testing.T) {
	ev := newEnv(t)
	rec := ev.hold(t, "owner-1", `{"seats":["A1"],"ttl_seconds":2}`)
	holdID, _ := decode(t, rec)["hold_id"].(string)
	ev.clock.Advance(2100 * time.Millisecond)

	com := ev.call(t, http.MethodPost, "/v1/holds/"+holdID+"/commit", "", "owner-1",
		map[string]string{"id": holdID}, ev.handler.CommitHold)
	if com.Code != http.StatusGone {
		t.Fatalf("commit past deadline: status = %d, want 410", com.Code)
	}
	// Same answer once the reaper has swept the hold away entirely.
	ev.handler.Ledger.ReapExpired()
	com = ev.call(t, http.MethodPost, "/v1/holds/"+holdID+"/commit", "", "owner-1",
		map[string]string{"id": holdID}, ev.handler.CommitHold)
	if com.Code != http.StatusGone {
		t.Fatalf("commit after sweep: status = %d, want 410", com.Code)
	}
	if com := ev.call(t, http.MethodPost, "/v1/holds/nope/commit", "", "owner-1",
		map[string]string{"id": "nope"}, ev.handler.CommitHold); com.Code != http.StatusNotFound {
		t.Fatalf("unknown commit: status = %d, want 404", com.Code)
	}
}

func TestGetAvailabilityReflectsLedger(t *testing.T) {
	ev := newEnv(t)
	if rec := ev.hold(t, "owner-1", `{"seats":["A2"]}`); rec.Code != http.StatusCreated {
		t.Fatalf("setup hold: %d", rec.Code)
	}
	rec := ev.call(t, http.MethodGet, "/v1/trips/R1/2026-01-20/seats", "", "",
		map[string]string{"route": "R1", "date": "2026-01-20"}, ev.handler.GetAvailability)
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: status = %d", rec.Code)
	}
	m := decode(t, rec)
	seats, _ := m["seats"].([]interface{})
	if len(seats) != 3 {
		t.Fatalf("seats = %d, want 3", len(seats))
	}
	byLabel := map[string]string{}
	for _, s := range seats {
		sm := s.(map[string]interface{})
		byLabel[sm["label"].(string)] = sm["status"].(string)
	}
	if byLabel["A2"] != "HELD" || byLabel["A1"] != "AVAILABLE" {
		t.Fatalf("statuses = %v, want A2 HELD and A1 AVAILABLE", byLabel)
	}
	tmpl, _ := m["template"].(map[string]interface{})
	if tmpl["column_pattern"] != "2+2" {
		t.Fatalf("template = %v, want column_pattern 2+2", tmpl)
	}
}

// TestSessionRoundTrip drives the real routes: a minted session token
// passes the middleware and an unauthenticated request does not.
func TestSessionRoundTrip(t *testing.T) {
	ev := newEnv(t)
	const secret = "test-secret"
	noop := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	router.RegisterSession(ev.e, NewSessionHandler(secret, time.Hour))
	router.RegisterReservation(ev.e, ev.handler, secret, noop)

	req := httptest.NewRequest(http.MethodPost, "/v1/session", nil)
	rec := httptest.NewRecorder()
	ev.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status = %d", rec.Code)
	}
	token, _ := decode(t, rec)["token"].(string)
	if token == "" {
		t.Fatal("empty session token")
	}

	hold := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/trips/R1/2026-01-20/hold",
			strings.NewReader(`{"seats":["B1"]}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if auth != "" {
			req.Header.Set("Authorization", "Bearer "+auth)
		}
		rec := httptest.NewRecorder()
		ev.e.ServeHTTP(rec, req)
		return rec
	}
	if rec := hold(""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}
	if rec := hold("not-a-jwt"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}
	if rec := hold(token); rec.Code != http.StatusCreated {
		t.Fatalf("valid token: status = %d, want 201 (body=%s)", rec.Code, rec.Body.String())
	}
}
