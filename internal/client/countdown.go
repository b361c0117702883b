package client

import (
	"sync"
	"time"
)

// Countdown is the advisory timer mirroring a hold's server-side
// expiry for the UI.  It ticks once per second and computes the
// remaining time from the server-issued expiry instant, never from a
// locally started duration, so client clock drift can shorten the
// displayed window but never stretch it past the real server deadline.
// When the remaining time reaches zero it fires exactly one expiry
// event and stops; it performs no network calls and the server's
// reaper remains authoritative regardless of what this timer shows.
type Countdown struct {
	expiresAt time.Time
	expired   chan struct{}
	stop      chan struct{}
	fireOnce  sync.Once
	stopOnce  sync.Once
}

// NewCountdown starts a countdown toward the server-issued expiresAt.
// tick controls the polling interval and defaults to one second when
// zero or negative; tests shorten it.
func NewCountdown(expiresAt time.Time, tick time.Duration) *Countdown {
	if tick <= 0 {
		tick = time.Second
	}
	cd := &Countdown{
		expiresAt: expiresAt,
		expired:   make(chan struct{}),
		stop:      make(chan struct{}),
	}
	go cd.run(tick)
	return cd
}

func (cd *Countdown) run(tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	// The hold may already be past due when the countdown starts.
	if cd.Remaining() <= 0 {
		cd.fire()
		return
	}
	for {
		select {
		case <-cd.stop:
			return
		case <-t.C:
			if cd.Remaining() <= 0 {
				cd.fire()
				return
			}
		}
	}
}

func (cd *Countdown) fire() {
	cd.fireOnce.Do(func() { close(cd.expired) })
}

// Remaining reports the time left on the hold, clamped at zero.
func (cd *Countdown) Remaining() time.Duration {
	r := time.Until(cd.expiresAt)
	if r < 0 {
		return 0
	}
	return r
}

// Expired returns a channel that is closed exactly once, when the
// countdown reaches zero.  It never closes if Stop is called first.
func (cd *Countdown) Expired() <-chan struct{} {
	return cd.expired
}

// Stop halts the countdown without firing the expiry event.  Safe to
// call multiple times and after expiry.
func (cd *Countdown) Stop() {
	cd.stopOnce.Do(func() { close(cd.stop) })
}
