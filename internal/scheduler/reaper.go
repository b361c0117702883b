// Package scheduler runs the expiry reaper: the background job that
// sweeps the hold ledger on a fixed tick and returns the seats of
// overdue holds to AVAILABLE.  The reaper is the correctness backstop
// for every lost release call; client-side countdowns are advisory only.
package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// HoldReaper is the slice of the ledger the reaper needs.
type HoldReaper interface {
	ReapExpired() []model.Hold
}

// Reaper owns the gocron scheduler driving periodic sweeps.
type Reaper struct {
	sched gocron.Scheduler
}

// Start builds and starts a reaper sweeping the ledger every interval.
// Sweeps are serialized: if one overruns the tick, the next is skipped
// rather than stacked.  Reaped holds are logged; the ledger's expiry
// hook handles event publication.
func Start(ledger HoldReaper, interval time.Duration) (*Reaper, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			reaped := ledger.ReapExpired()
			if len(reaped) > 0 {
				log.Printf("reaper: expired %d hold(s)", len(reaped))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("new job: %w", err)
	}
	s.Start()
	return &Reaper{sched: s}, nil
}

// Stop shuts the scheduler down and waits for a running sweep to finish.
func (r *Reaper) Stop() error {
	return r.sched.Shutdown()
}
