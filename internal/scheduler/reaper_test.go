package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

type countingReaper struct {
	sweeps atomic.Int64
}

func (c *countingReaper) ReapExpired() []model.Hold {
	c.sweeps.Add(1)
	return nil
}

func TestReaperSweepsOnInterval(t *testing.T) {
	cr := &countingReaper{}
	r, err := Start(cr, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		if err := r.Stop(); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for cr.sweeps.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("saw %d sweeps in 2s, want at least 2", cr.sweeps.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReaperStopHaltsSweeps(t *testing.T) {
	cr := &countingReaper{}
	r, err := Start(cr, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for cr.sweeps.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no sweep within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	n := cr.sweeps.Load()
	time.Sleep(50 * time.Millisecond)
	if cr.sweeps.Load() != n {
		t.Fatalf("sweeps continued after Stop: %d -> %d", n, cr.sweeps.Load())
	}
}
