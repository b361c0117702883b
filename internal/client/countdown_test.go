package client

import (
	"testing"
	"time"
)

func TestCountdownFiresOnce(t *testing.T) {
	cd := NewCountdown(time.Now().Add(60*time.Millisecond), 10*time.Millisecond)
	defer cd.Stop()

	select {
	case <-cd.Expired():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not fire within 2s")
	}
	// The channel is closed, so a second receive completes immediately
	// instead of firing a second event.
	select {
	case <-cd.Expired():
	default:
		t.Fatal("expired channel not closed after firing")
	}
	if got := cd.Remaining(); got != 0 {
		t.Fatalf("remaining after expiry = %v, want 0", got)
	}
}

func TestCountdownAlreadyPastDue(t *testing.T) {
	cd := NewCountdown(time.Now().Add(-time.Second), 10*time.Millisecond)
	defer cd.Stop()
	select {
	case <-cd.Expired():
	case <-time.After(2 * time.Second):
		t.Fatal("past-due countdown did not fire immediately")
	}
}

func TestCountdownStopSuppressesEvent(t *testing.T) {
	cd := NewCountdown(time.Now().Add(50*time.Millisecond), 10*time.Millisecond)
	cd.Stop()
	select {
	case <-cd.Expired():
		t.Fatal("stopped countdown fired anyway")
	case <-time.After(200 * time.Millisecond):
	}
	cd.Stop() // stopping again is a no-op
}

func TestCountdownRemainingClampsAtZero(t *testing.T) {
	cd := NewCountdown(time.Now().Add(time.Hour), 0)
	defer cd.Stop()
	if r := cd.Remaining(); r <= 0 || r > time.Hour {
		t.Fatalf("remaining = %v, want within (0, 1h]", r)
	}
}
