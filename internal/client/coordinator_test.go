package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// testServer is a minimal fake of the reservation API, just enough for
// the coordinator's contract.
type testServer struct {
	*httptest.Server
	availabilityHits atomic.Int64
	releasedHold     atomic.Value // string
	holdStatus       int          // status answered by the hold endpoint
	commitStatus     int          // status answered by the commit endpoint
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{holdStatus: http.StatusCreated, commitStatus: http.StatusOK}
	mux := http.NewServeMux()
	// Method-prefixed ServeMux patterns need Go 1.22; guard the method by
	// hand so the fake server also works on older toolchains.
	requireMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("/v1/trips/R1/2026-01-20/hold", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch ts.holdStatus {
		case http.StatusCreated:
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"hold_id":    "h1",
				"expires_at": time.Now().UTC().Add(900 * time.Second).Format(time.RFC3339),
			})
		case http.StatusConflict:
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error":             "seats unavailable",
				"conflicting_seats": []string{"A2"},
			})
		default:
			w.WriteHeader(ts.holdStatus)
		}
	}))
	mux.HandleFunc("/v1/holds/h1/commit", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ts.commitStatus)
		if ts.commitStatus == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"booking_id": 1, "reference": "ref-1", "total_cents": 5000,
			})
		}
	}))
	mux.HandleFunc("/v1/holds/h1/release", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		ts.releasedHold.Store("h1")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"released":true}`))
	}))
	mux.HandleFunc("/v1/trips/R1/2026-01-20/seats", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		ts.availabilityHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
            "route_id": "R1",
            "departure_date": "2026-01-20",
            "template": {"name": "Single Deck 2+2", "floors": 1, "rows": 3, "column_pattern": "2+2", "seat_count": 6},
            "seats": [{"id": 1, "label": "A1", "floor": 1, "row": 1, "column": 1, "status": "AVAILABLE", "price_cents": 2500}]
        }`))
	}))
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestHoldStoresGrantedLease(t *testing.T) {
	srv := newTestServer(t)
	c := NewCoordinator(srv.URL, "tok", nil)

	res := c.Hold(context.Background(), "R1", "2026-01-20", []string{"A1", "A2"})
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %v, want OK (err=%v)", res.Outcome, res.Err)
	}
	if res.Hold == nil || res.Hold.HoldID != "h1" {
		t.Fatalf("hold = %+v, want id h1", res.Hold)
	}
	active := c.Active()
	if active == nil || active.HoldID != "h1" || len(active.SeatLabels) != 2 {
		t.Fatalf("active = %+v, want stored lease for h1", active)
	}
	if !active.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiresAt = %v, want in the future", active.ExpiresAt)
	}
}

func TestHoldConflictReturnsExactSubset(t *testing.T) {
	srv := newTestServer(t)
	srv.holdStatus = http.StatusConflict
	c := NewCoordinator(srv.URL, "tok", nil)

	res := c.Hold(context.Background(), "R1", "2026-01-20", []string{"A1", "A2"})
	if res.Outcome != OutcomeConflict {
		t.Fatalf("outcome = %v, want Conflict", res.Outcome)
	}
	if len(res.ConflictingSeats) != 1 || res.ConflictingSeats[0] != "A2" {
		t.Fatalf("conflicting seats = %v, want [A2]", res.ConflictingSeats)
	}
	if c.Active() != nil {
		t.Fatal("conflict must not store a lease")
	}
}

func TestHoldTransientOnNetworkFailure(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL
	srv.Close()
	c := NewCoordinator(url, "tok", nil)

	res := c.Hold(context.Background(), "R1", "2026-01-20", []string{"A1"})
	if res.Outcome != OutcomeTransient || res.Err == nil {
		t.Fatalf("outcome = %v err = %v, want Transient with error", res.Outcome, res.Err)
	}
}

func TestCommitOutcomes(t *testing.T) {
	srv := newTestServer(t)
	c := NewCoordinator(srv.URL, "tok", nil)
	if res := c.Commit(context.Background()); res.Outcome != OutcomeInvalid {
		t.Fatalf("commit without a hold: outcome = %v, want Invalid", res.Outcome)
	}

	if res := c.Hold(context.Background(), "R1", "2026-01-20", []string{"A1"}); res.Outcome != OutcomeOK {
		t.Fatalf("hold: %v", res.Outcome)
	}
	srv.commitStatus = http.StatusGone
	if res := c.Commit(context.Background()); res.Outcome != OutcomeExpired {
		t.Fatalf("expired commit: outcome = %v, want Expired", res.Outcome)
	}
	// The lease is still set; a second attempt can succeed if the
	// server allows it.
	srv.commitStatus = http.StatusOK
	res := c.Commit(context.Background())
	if res.Outcome != OutcomeOK || res.BookingRef != "ref-1" || res.TotalCents != 5000 {
		t.Fatalf("commit = %+v, want OK/ref-1/5000", res)
	}
	if c.Active() != nil {
		t.Fatal("successful commit must clear the lease")
	}
}

func TestAbandonFiresBestEffortRelease(t *testing.T) {
	srv := newTestServer(t)
	c := NewCoordinator(srv.URL, "tok", nil)
	if res := c.Hold(context.Background(), "R1", "2026-01-20", []string{"A1"}); res.Outcome != OutcomeOK {
		t.Fatalf("hold: %v", res.Outcome)
	}

	done := c.Abandon()
	// Local state clears immediately, without waiting on the network.
	if c.Active() != nil {
		t.Fatal("abandon must clear the lease synchronously")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background release did not finish within 2s")
	}
	if got, _ := srv.releasedHold.Load().(string); got != "h1" {
		t.Fatalf("released hold = %q, want h1", got)
	}

	// Abandoning again with no lease is a no-op.
	<-c.Abandon()
}

func TestRefreshCooldownServesCachedSnapshot(t *testing.T) {
	srv := newTestServer(t)
	c := NewCoordinator(srv.URL, "tok", nil)
	c.RefreshCooldown = 80 * time.Millisecond
	ctx := context.Background()

	first, err := c.RefreshAvailability(ctx, "R1", "2026-01-20")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	second, err := c.RefreshAvailability(ctx, "R1", "2026-01-20")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if srv.availabilityHits.Load() != 1 {
		t.Fatalf("availability hits = %d, want 1 (cooldown)", srv.availabilityHits.Load())
	}
	if first != second {
		t.Fatal("cooldown refresh must return the cached snapshot")
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := c.RefreshAvailability(ctx, "R1", "2026-01-20"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if srv.availabilityHits.Load() != 2 {
		t.Fatalf("availability hits = %d, want 2 after cooldown", srv.availabilityHits.Load())
	}
}

func TestAcknowledgeExpiryClearsStateAndForcesRefresh(t *testing.T) {
	srv := newTestServer(t)
	c := NewCoordinator(srv.URL, "tok", nil)
	ctx := context.Background()

	if res := c.Hold(ctx, "R1", "2026-01-20", []string{"A1"}); res.Outcome != OutcomeOK {
		t.Fatalf("hold: %v", res.Outcome)
	}
	if _, err := c.RefreshAvailability(ctx, "R1", "2026-01-20"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap, err := c.AcknowledgeExpiry(ctx)
	if err != nil {
		t.Fatalf("acknowledge expiry: %v", err)
	}
	if snap.RouteID != "R1" {
		t.Fatalf("snapshot route = %s, want R1", snap.RouteID)
	}
	if c.Active() != nil {
		t.Fatal("acknowledged expiry must clear the lease")
	}
	// The cooldown was bypassed: a second availability request hit the
	// server even though the first was moments ago.
	if srv.availabilityHits.Load() != 2 {
		t.Fatalf("availability hits = %d, want 2 (cooldown bypassed)", srv.availabilityHits.Load())
	}
}
