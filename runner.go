package embedview

import (
	"sync"
	"sync/atomic"
	"time"
)

// Runner ticks an engine on a dedicated goroutine at a fixed interval.
//
// It is the background alternative to the default cooperative mode where
// each host redraw ticks the engine once. The frame and input channels
// remain the only data shared with the draw cycle.
type Runner struct {
	tick     func() bool
	interval time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	ticks atomic.Uint64
}

// NewRunner creates a stopped runner. tick returns false when the engine is
// gone, which ends the loop.
func NewRunner(interval time.Duration, tick func() bool) *Runner {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Runner{
		tick:     tick,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the tick loop. Calling Start on a running or stopped
// runner does nothing.
func (r *Runner) Start() {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	select {
	case <-r.stopChan:
		r.running.Store(false)
		return
	default:
	}
	r.wg.Add(1)
	go r.loop()
}

func (r *Runner) loop() {
	defer r.wg.Done()
	defer r.running.Store(false)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			if !r.tick() {
				return
			}
			r.ticks.Add(1)
		}
	}
}

// Stop ends the loop and waits for the current tick to finish. It is
// idempotent.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Running reports whether the loop goroutine is alive.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Ticks returns the number of completed ticks.
func (r *Runner) Ticks() uint64 {
	return r.ticks.Load()
}
