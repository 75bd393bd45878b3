package embedview

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunnerTicks(t *testing.T) {
	var n atomic.Int32
	r := NewRunner(time.Millisecond, func() bool {
		n.Add(1)
		return true
	})
	r.Start()
	r.Start() // no second loop

	waitFor(t, func() bool { return n.Load() >= 5 })
	r.Stop()

	if r.Running() {
		t.Error("Running() = true after Stop")
	}
	after := n.Load()
	time.Sleep(10 * time.Millisecond)
	if n.Load() != after {
		t.Error("tick ran after Stop returned")
	}
	if r.Ticks() != uint64(after) {
		t.Errorf("Ticks() = %d, want %d", r.Ticks(), after)
	}
}

func TestRunnerStopsWhenTickFails(t *testing.T) {
	var n atomic.Int32
	r := NewRunner(time.Millisecond, func() bool {
		return n.Add(1) < 3
	})
	r.Start()
	waitFor(t, func() bool { return !r.Running() && n.Load() >= 3 })
	r.Stop()

	if got := n.Load(); got != 3 {
		t.Errorf("tick called %d times, want 3", got)
	}
	if r.Ticks() != 2 {
		t.Errorf("Ticks() = %d, want 2", r.Ticks())
	}
}

func TestRunnerStopIdempotent(t *testing.T) {
	r := NewRunner(0, func() bool { return true })
	r.Stop()
	r.Stop()
	r.Start()
	if r.Running() {
		t.Error("a stopped runner must not start again")
	}
}

func TestRunnerDefaultInterval(t *testing.T) {
	r := NewRunner(-time.Second, func() bool { return true })
	if r.interval != time.Second/60 {
		t.Errorf("interval = %v, want 60 Hz", r.interval)
	}
}
