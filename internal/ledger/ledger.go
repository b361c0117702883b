package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// TripKey identifies one trip: a route departing on a calendar date.
// Seat availability and holds are partitioned by this key.
type TripKey struct {
	RouteID       string
	DepartureDate string
}

// TripLoader supplies the seat plan for a trip the first time the ledger
// sees it.  The production implementation reads trips, templates and
// seats from MySQL; tests supply an in-memory fake.  LoadTrip must
// return ErrTripNotFound when the trip does not exist.
type TripLoader interface {
	LoadTrip(ctx context.Context, routeID, departureDate string) (*model.TripPlan, error)
}

// Config carries the product policy knobs for the ledger.
type Config struct {
	MaxSeatsPerHold int           // upper bound on seats per hold (product policy: 5)
	DefaultTTL      time.Duration // TTL applied when a request does not name one (900s)
	MaxTTL          time.Duration // requested TTLs are clamped to this
}

// DefaultConfig returns the production policy values.
func DefaultConfig() Config {
	return Config{
		MaxSeatsPerHold: 5,
		DefaultTTL:      15 * time.Minute,
		MaxTTL:          30 * time.Minute,
	}
}

// Grant is the lease returned by a successful Hold call.
type Grant struct {
	HoldID    string    // opaque hold identifier
	ExpiresAt time.Time // absolute expiry instant (UTC)
}

// CommitResult describes a successfully committed hold, with enough
// context for the caller to persist the booking.
type CommitResult struct {
	Hold model.Hold // the committed hold, state COMMITTED
	Trip model.Trip // the trip the seats belong to
}

// tripState is the per-trip arena: the ordered seat list plus the active
// holds that claim seats on it.  Every field is guarded by mu, and mu is
// scoped to this trip only, so reaping or holding one trip never blocks
// operations on another.
type tripState struct {
	mu       sync.Mutex
	trip     model.Trip
	template model.BusTemplate
	seats    []model.Seat           // layout order; statuses mutated in place
	byLabel  map[string]int         // seat label -> index into seats
	byID     map[uint64]int         // seat id -> index into seats
	holds    map[string]*model.Hold // active holds only
	seatHold map[uint64]string      // seat id -> holding hold id
}

// Ledger is the authoritative store of seat statuses and active holds.
// All four manager operations (Hold, Release, Commit, Snapshot) and the
// reaper funnel through it; each is atomic with respect to the others
// for any given trip.
type Ledger struct {
	loader   TripLoader
	cfg      Config
	clock    clockwork.Clock
	onExpire func(model.Hold) // invoked after a hold is reaped, outside any lock

	mu       sync.Mutex
	trips    map[TripKey]*tripState
	holdTrip map[string]TripKey   // active hold id -> owning trip
	expired  map[string]time.Time // reaped hold id -> expiry instant
}

// tombstoneTTL bounds how long a reaped hold id stays recognizable.  A
// commit arriving after the reaper must answer "expired", not "not
// found", for as long as a client could plausibly still retry it.
const tombstoneTTL = time.Hour

// New constructs a Ledger.  clock may be nil, in which case the real
// clock is used.  onExpire may be nil; when set it is called once per
// reaped hold, after the ledger's locks have been released.
func New(loader TripLoader, cfg Config, clock clockwork.Clock, onExpire func(model.Hold)) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.MaxSeatsPerHold <= 0 {
		cfg.MaxSeatsPerHold = DefaultConfig().MaxSeatsPerHold
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = DefaultConfig().MaxTTL
	}
	return &Ledger{
		loader:   loader,
		cfg:      cfg,
		clock:    clock,
		onExpire: onExpire,
		trips:    make(map[TripKey]*tripState),
		holdTrip: make(map[string]TripKey),
		expired:  make(map[string]time.Time),
	}
}

// Hold atomically claims the named seats for ownerToken.  Either every
// requested seat is AVAILABLE and all of them flip to HELD under a new
// lease, or nothing changes and the error reports exactly the
// conflicting subset.  Two concurrent calls racing for the same seat see
// one winner and one ConflictError, never two winners.
//
// A zero ttl selects the configured default; larger values are clamped
// to the configured maximum.  Duplicate labels count once.  Seats
// already HELD by the same owner still conflict: there is no idempotent
// re-hold, the owner must release first.
func (l *Ledger) Hold(ctx context.Context, routeID, departureDate, ownerToken string, seatLabels []string, ttl time.Duration) (*Grant, error) {
	labels := dedupe(seatLabels)
	if len(labels) == 0 {
		return nil, ErrNoSeats
	}
	if len(labels) > l.cfg.MaxSeatsPerHold {
		return nil, ErrTooManySeats
	}
	if ttl <= 0 {
		ttl = l.cfg.DefaultTTL
	}
	if ttl > l.cfg.MaxTTL {
		ttl = l.cfg.MaxTTL
	}
	ts, err := l.tripState(ctx, TripKey{RouteID: routeID, DepartureDate: departureDate})
	if err != nil {
		return nil, err
	}

	now := l.clock.Now().UTC()
	ts.mu.Lock()
	reaped := ts.reapLocked(now)

	var unknown []string
	idx := make([]int, 0, len(labels))
	for _, lb := range labels {
		i, ok := ts.byLabel[lb]
		if !ok {
			unknown = append(unknown, lb)
			continue
		}
		idx = append(idx, i)
	}
	if len(unknown) > 0 {
		ts.mu.Unlock()
		l.finishReaped(reaped)
		return nil, &UnknownSeatError{Labels: unknown}
	}

	var conflicts []string
	for _, i := range idx {
		if ts.seats[i].Status != model.SeatAvailable {
			conflicts = append(conflicts, ts.seats[i].Label)
		}
	}
	if len(conflicts) > 0 {
		ts.mu.Unlock()
		l.finishReaped(reaped)
		return nil, &ConflictError{Seats: conflicts}
	}

	h := &model.Hold{
		ID:            uuid.NewString(),
		OwnerToken:    ownerToken,
		RouteID:       routeID,
		DepartureDate: departureDate,
		ExpiresAt:     now.Add(ttl),
		State:         model.HoldActive,
		CreatedAt:     now,
	}
	for _, i := range idx {
		ts.seats[i].Status = model.SeatHeld
		h.SeatIDs = append(h.SeatIDs, ts.seats[i].ID)
		h.SeatLabels = append(h.SeatLabels, ts.seats[i].Label)
		h.TotalCents += ts.seats[i].PriceCents
		ts.seatHold[ts.seats[i].ID] = h.ID
	}
	ts.holds[h.ID] = h
	ts.mu.Unlock()

	l.mu.Lock()
	l.holdTrip[h.ID] = TripKey{RouteID: routeID, DepartureDate: departureDate}
	l.mu.Unlock()

	// A sweep may have reaped the brand-new hold between the two locks;
	// its index delete ran before our insert, so re-check liveness and
	// drop the entry rather than leak it.
	ts.mu.Lock()
	_, live := ts.holds[h.ID]
	ts.mu.Unlock()
	if !live {
		l.forget(h.ID)
	}
	l.finishReaped(reaped)

	return &Grant{HoldID: h.ID, ExpiresAt: h.ExpiresAt}, nil
}

// Release returns the hold's seats to AVAILABLE and removes the hold.
// It is a no-op on unknown, already released, expired or committed
// holds; release is frequently called speculatively (back navigation,
// abandoned flows) and must never fail loudly.  It reports whether an
// active hold was actually released.
func (l *Ledger) Release(holdID string) bool {
	l.mu.Lock()
	key, ok := l.holdTrip[holdID]
	ts := l.trips[key]
	l.mu.Unlock()
	if !ok || ts == nil {
		return false
	}

	ts.mu.Lock()
	h, ok := ts.holds[holdID]
	if !ok {
		ts.mu.Unlock()
		return false
	}
	ts.terminateLocked(h, model.HoldReleased)
	ts.mu.Unlock()

	l.forget(holdID)
	return true
}

// Commit converts an active hold into a permanent claim: its seats flip
// from HELD to BOOKED and the hold reaches COMMITTED.  It fails with
// ErrHoldExpired when the TTL has already elapsed, whether the reaper
// got to the hold first (tombstoned) or the deadline passed between
// ticks (reaped here, seats back to AVAILABLE), and with ErrHoldNotFound
// when the hold never existed, was released, or was already committed.
func (l *Ledger) Commit(holdID string) (*CommitResult, error) {
	l.mu.Lock()
	key, ok := l.holdTrip[holdID]
	ts := l.trips[key]
	_, reaped := l.expired[holdID]
	l.mu.Unlock()
	if !ok || ts == nil {
		// A reaped hold must stay distinguishable from one that never
		// existed: the caller lost a race with the reaper, not the id.
		if reaped {
			return nil, ErrHoldExpired
		}
		return nil, ErrHoldNotFound
	}

	now := l.clock.Now().UTC()
	ts.mu.Lock()
	h, ok := ts.holds[holdID]
	if !ok {
		ts.mu.Unlock()
		return nil, ErrHoldNotFound
	}
	if !h.ExpiresAt.After(now) {
		// The reaper has not swept this hold yet, but the deadline is
		// authoritative regardless of tick timing.
		ts.terminateLocked(h, model.HoldExpired)
		expired := *h
		ts.mu.Unlock()
		l.forget(holdID)
		l.finishReaped([]model.Hold{expired})
		return nil, ErrHoldExpired
	}
	ts.terminateLocked(h, model.HoldCommitted)
	res := &CommitResult{Hold: *h, Trip: ts.trip}
	ts.mu.Unlock()

	l.forget(holdID)
	return res, nil
}

// Snapshot returns a read-only copy of the trip's current seat statuses,
// reaping any overdue holds first so the snapshot never shows a lease
// that has already run out.
func (l *Ledger) Snapshot(ctx context.Context, routeID, departureDate string) (*model.SeatAvailability, error) {
	ts, err := l.tripState(ctx, TripKey{RouteID: routeID, DepartureDate: departureDate})
	if err != nil {
		return nil, err
	}
	now := l.clock.Now().UTC()
	ts.mu.Lock()
	reaped := ts.reapLocked(now)
	seats := make([]model.Seat, len(ts.seats))
	copy(seats, ts.seats)
	snap := &model.SeatAvailability{
		RouteID:       routeID,
		DepartureDate: departureDate,
		Template:      ts.template,
		Seats:         seats,
	}
	ts.mu.Unlock()
	l.finishReaped(reaped)
	return snap, nil
}

// ReapExpired sweeps every known trip and expires holds whose deadline
// has passed, returning the reaped holds.  Locking is per trip: a sweep
// over one trip never blocks Hold/Release/Commit on another, and within
// a trip it contends like any other operation.
func (l *Ledger) ReapExpired() []model.Hold {
	now := l.clock.Now().UTC()
	l.mu.Lock()
	states := make([]*tripState, 0, len(l.trips))
	for _, ts := range l.trips {
		states = append(states, ts)
	}
	for id, exp := range l.expired {
		if now.Sub(exp) > tombstoneTTL {
			delete(l.expired, id)
		}
	}
	l.mu.Unlock()
	var all []model.Hold
	for _, ts := range states {
		ts.mu.Lock()
		reaped := ts.reapLocked(now)
		ts.mu.Unlock()
		all = append(all, reaped...)
	}
	l.finishReaped(all)
	return all
}

// ActiveHolds reports the number of live holds across all trips.
func (l *Ledger) ActiveHolds() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holdTrip)
}

// tripState returns the arena for key, loading it through the TripLoader
// on first access.  Loading happens outside the ledger lock; when two
// loads race, the first insert wins and the loser's plan is discarded.
func (l *Ledger) tripState(ctx context.Context, key TripKey) (*tripState, error) {
	l.mu.Lock()
	ts, ok := l.trips[key]
	l.mu.Unlock()
	if ok {
		return ts, nil
	}

	plan, err := l.loader.LoadTrip(ctx, key.RouteID, key.DepartureDate)
	if err != nil {
		return nil, err
	}
	fresh := newTripState(plan)

	l.mu.Lock()
	defer l.mu.Unlock()
	if ts, ok = l.trips[key]; ok {
		return ts, nil
	}
	l.trips[key] = fresh
	return fresh, nil
}

// forget drops the hold's entry from the global hold index.
func (l *Ledger) forget(holdID string) {
	l.mu.Lock()
	delete(l.holdTrip, holdID)
	l.mu.Unlock()
}

// finishReaped removes reaped holds from the global index, records a
// tombstone per hold so late commits answer expired, and fires the
// expiry hook for each.  Must be called without any ledger lock held.
func (l *Ledger) finishReaped(reaped []model.Hold) {
	if len(reaped) == 0 {
		return
	}
	l.mu.Lock()
	for i := range reaped {
		delete(l.holdTrip, reaped[i].ID)
		l.expired[reaped[i].ID] = reaped[i].ExpiresAt
	}
	l.mu.Unlock()
	if l.onExpire != nil {
		for i := range reaped {
			l.onExpire(reaped[i])
		}
	}
}

func newTripState(plan *model.TripPlan) *tripState {
	ts := &tripState{
		trip:     plan.Trip,
		template: plan.Template,
		seats:    make([]model.Seat, len(plan.Seats)),
		byLabel:  make(map[string]int, len(plan.Seats)),
		byID:     make(map[uint64]int, len(plan.Seats)),
		holds:    make(map[string]*model.Hold),
		seatHold: make(map[uint64]string),
	}
	copy(ts.seats, plan.Seats)
	for i := range ts.seats {
		ts.byLabel[ts.seats[i].Label] = i
		ts.byID[ts.seats[i].ID] = i
	}
	return ts
}

// reapLocked expires every hold whose deadline has passed and returns
// copies of the reaped holds.  Caller must hold ts.mu.
func (ts *tripState) reapLocked(now time.Time) []model.Hold {
	var reaped []model.Hold
	for _, h := range ts.holds {
		if h.ExpiresAt.After(now) {
			continue
		}
		ts.terminateLocked(h, model.HoldExpired)
		reaped = append(reaped, *h)
	}
	return reaped
}

// terminateLocked moves an active hold into a terminal state, flips its
// seats accordingly and removes it from the per-trip indexes.  Seats go
// back to AVAILABLE on release/expiry and to BOOKED on commit.  Caller
// must hold ts.mu.
func (ts *tripState) terminateLocked(h *model.Hold, state model.HoldState) {
	next := model.SeatAvailable
	if state == model.HoldCommitted {
		next = model.SeatBooked
	}
	for _, sid := range h.SeatIDs {
		if ts.seatHold[sid] != h.ID {
			continue
		}
		delete(ts.seatHold, sid)
		if i, ok := ts.byID[sid]; ok {
			ts.seats[i].Status = next
		}
	}
	h.State = state
	delete(ts.holds, h.ID)
}

// dedupe drops empty and repeated labels while preserving request order.
func dedupe(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, lb := range labels {
		if lb == "" {
			continue
		}
		if _, ok := seen[lb]; ok {
			continue
		}
		seen[lb] = struct{}{}
		out = append(out, lb)
	}
	return out
}
