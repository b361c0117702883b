// Package client implements the booking-flow side of the reservation
// protocol: a coordinator that drives hold, release and commit calls
// against the server, and the advisory countdown timer that mirrors the
// server-side expiry for the UI.  The coordinator is the only component
// that talks to the hold manager's network contract; everything it
// learns is kept as explicit state on the struct, never in globals.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DefaultHoldTTLSeconds is the product default lease length requested
// for every hold: 15 minutes.
const DefaultHoldTTLSeconds = 900

// DefaultRefreshCooldown is the minimum spacing between identical
// availability refreshes.  It is a politeness policy against request
// storms from impatient retries, not a correctness mechanism.
const DefaultRefreshCooldown = 30 * time.Second

// Outcome tags the result of a hold or commit attempt so callers can
// branch without inspecting errors.
type Outcome int

const (
	// OutcomeOK means the call succeeded.
	OutcomeOK Outcome = iota
	// OutcomeConflict means one or more requested seats were taken.
	OutcomeConflict
	// OutcomeExpired means the hold was reaped before the commit.
	OutcomeExpired
	// OutcomeInvalid means the server rejected the request as malformed
	// or referring to something that does not exist.  Not retryable.
	OutcomeInvalid
	// OutcomeTransient means the call's fate is unknown: the request or
	// the response was lost.  The caller must re-query state rather
	// than assume either success or failure.
	OutcomeTransient
)

// ActiveHold is the client-side record of a granted lease.
type ActiveHold struct {
	HoldID        string
	RouteID       string
	DepartureDate string
	SeatLabels    []string
	ExpiresAt     time.Time // server-issued; the countdown derives from this
}

// HoldResult is the tagged result of a hold attempt.
type HoldResult struct {
	Outcome          Outcome
	Hold             *ActiveHold // set when Outcome is OutcomeOK
	ConflictingSeats []string    // set when Outcome is OutcomeConflict
	Err              error       // set when Outcome is OutcomeTransient
}

// CommitResult is the tagged result of a commit attempt.
type CommitResult struct {
	Outcome    Outcome
	BookingRef string // set when Outcome is OutcomeOK
	TotalCents uint32 // set when Outcome is OutcomeOK
	Err        error  // set when Outcome is OutcomeTransient
}

// SeatInfo mirrors one seat of an availability snapshot.
type SeatInfo struct {
	ID         uint64 `json:"id"`
	Label      string `json:"label"`
	Floor      uint8  `json:"floor"`
	Row        uint8  `json:"row"`
	Column     uint8  `json:"column"`
	Status     string `json:"status"`
	PriceCents uint32 `json:"price_cents"`
}

// Availability mirrors the server's seat availability response.
type Availability struct {
	RouteID       string `json:"route_id"`
	DepartureDate string `json:"departure_date"`
	Template      struct {
		Name          string `json:"name"`
		Floors        uint8  `json:"floors"`
		Rows          uint8  `json:"rows"`
		ColumnPattern string `json:"column_pattern"`
		SeatCount     uint16 `json:"seat_count"`
	} `json:"template"`
	Seats []SeatInfo `json:"seats"`
}

type refreshEntry struct {
	at   time.Time
	snap *Availability
}

// Coordinator owns the client-visible hold state for one booking flow.
// It is safe for use from a single flow at a time; all state lives on
// the struct and is guarded for the background release goroutine.
type Coordinator struct {
	baseURL string
	token   string // bearer session token
	httpc   *http.Client

	// RefreshCooldown spaces identical availability refreshes; within
	// the window the cached snapshot is returned without a request.
	RefreshCooldown time.Duration

	mu      sync.Mutex
	active  *ActiveHold
	refresh map[string]refreshEntry // "route/date" -> last refresh
}

// NewCoordinator constructs a Coordinator for the given server and
// session token.  httpc may be nil, in which case a client with a ten
// second timeout is used.
func NewCoordinator(baseURL, sessionToken string, httpc *http.Client) *Coordinator {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Coordinator{
		baseURL:         baseURL,
		token:           sessionToken,
		httpc:           httpc,
		RefreshCooldown: DefaultRefreshCooldown,
		refresh:         make(map[string]refreshEntry),
	}
}

// Active returns a copy of the current lease, or nil when none is held.
func (c *Coordinator) Active() *ActiveHold {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	cp := *c.active
	return &cp
}

// Hold claims the selected seats on the trip with the product default
// TTL.  On success the lease is stored for the rest of the flow; on
// conflict the exact conflicting subset is returned and the caller
// should refresh availability and let the traveller re-select; the
// coordinator never retries automatically.
func (c *Coordinator) Hold(ctx context.Context, routeID, departureDate string, seatLabels []string) HoldResult {
	body, _ := json.Marshal(map[string]interface{}{
		"seats":       seatLabels,
		"ttl_seconds": DefaultHoldTTLSeconds,
	})
	url := fmt.Sprintf("%s/v1/trips/%s/%s/hold", c.baseURL, routeID, departureDate)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return HoldResult{Outcome: OutcomeTransient, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var out struct {
			HoldID    string `json:"hold_id"`
			ExpiresAt string `json:"expires_at"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return HoldResult{Outcome: OutcomeTransient, Err: err}
		}
		expiresAt, err := time.Parse(time.RFC3339, out.ExpiresAt)
		if err != nil {
			return HoldResult{Outcome: OutcomeTransient, Err: err}
		}
		h := &ActiveHold{
			HoldID:        out.HoldID,
			RouteID:       routeID,
			DepartureDate: departureDate,
			SeatLabels:    append([]string(nil), seatLabels...),
			ExpiresAt:     expiresAt,
		}
		c.mu.Lock()
		c.active = h
		c.mu.Unlock()
		cp := *h
		return HoldResult{Outcome: OutcomeOK, Hold: &cp}
	case http.StatusConflict:
		var out struct {
			ConflictingSeats []string `json:"conflicting_seats"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return HoldResult{Outcome: OutcomeConflict, ConflictingSeats: out.ConflictingSeats}
	default:
		return HoldResult{Outcome: OutcomeInvalid}
	}
}

// Commit finalises the current lease after payment confirmation.  An
// expired outcome means the reaper won the race; the flow must restart
// seat selection.  Transient failures must be surfaced to the traveller
// because they affect whether the seats are actually owned.
func (c *Coordinator) Commit(ctx context.Context) CommitResult {
	c.mu.Lock()
	h := c.active
	c.mu.Unlock()
	if h == nil {
		return CommitResult{Outcome: OutcomeInvalid}
	}
	url := fmt.Sprintf("%s/v1/holds/%s/commit", c.baseURL, h.HoldID)
	resp, err := c.do(ctx, http.MethodPost, url, nil)
	if err != nil {
		return CommitResult{Outcome: OutcomeTransient, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out struct {
			Reference  string `json:"reference"`
			TotalCents uint32 `json:"total_cents"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return CommitResult{Outcome: OutcomeTransient, Err: err}
		}
		c.mu.Lock()
		c.active = nil
		c.mu.Unlock()
		return CommitResult{Outcome: OutcomeOK, BookingRef: out.Reference, TotalCents: out.TotalCents}
	case http.StatusGone:
		return CommitResult{Outcome: OutcomeExpired}
	default:
		return CommitResult{Outcome: OutcomeInvalid}
	}
}

// Abandon fires a best-effort release for the current lease and clears
// local state immediately.  It never blocks the caller and its result
// is never surfaced: if the request is lost, the expiry reaper on the
// server is the correctness backstop.  The returned channel closes when
// the background attempt finishes, which is only of interest to tests.
func (c *Coordinator) Abandon() <-chan struct{} {
	done := make(chan struct{})
	c.mu.Lock()
	h := c.active
	c.active = nil
	c.mu.Unlock()
	if h == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		url := fmt.Sprintf("%s/v1/holds/%s/release", c.baseURL, h.HoldID)
		if resp, err := c.do(ctx, http.MethodPost, url, nil); err == nil {
			resp.Body.Close()
		}
	}()
	return done
}

// RefreshAvailability fetches the trip's current seat statuses.  An
// identical refresh inside the cooldown window is answered from the
// last snapshot without touching the network.
func (c *Coordinator) RefreshAvailability(ctx context.Context, routeID, departureDate string) (*Availability, error) {
	key := routeID + "/" + departureDate
	c.mu.Lock()
	if e, ok := c.refresh[key]; ok && time.Since(e.at) < c.RefreshCooldown {
		snap := e.snap
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/v1/trips/%s/%s/seats", c.baseURL, routeID, departureDate)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("availability: unexpected status %d", resp.StatusCode)
	}
	var snap Availability
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.refresh[key] = refreshEntry{at: time.Now(), snap: &snap}
	c.mu.Unlock()
	return &snap, nil
}

// AcknowledgeExpiry is called once the traveller has confirmed the
// expiry prompt: it clears all local hold state and forces a fresh
// availability read for the trip, bypassing the cooldown, so seat
// selection restarts from current truth.
func (c *Coordinator) AcknowledgeExpiry(ctx context.Context) (*Availability, error) {
	c.mu.Lock()
	h := c.active
	c.active = nil
	c.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("no hold to acknowledge")
	}
	key := h.RouteID + "/" + h.DepartureDate
	c.mu.Lock()
	delete(c.refresh, key)
	c.mu.Unlock()
	return c.RefreshAvailability(ctx, h.RouteID, h.DepartureDate)
}

// do issues one authorized request with a JSON body.
func (c *Coordinator) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var rd *bytes.Reader
	if body == nil {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.httpc.Do(req)
}
