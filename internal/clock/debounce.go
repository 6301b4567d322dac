package clock

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled callback once a quiet period
// has passed. Scheduling again before the period ends cancels the pending
// callback, so at most one is in flight.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   Timer
	pending func()
}

// NewDebouncer returns a Debouncer with the given quiet period.
func NewDebouncer(c Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: c, delay: delay}
}

// Schedule arms fn, replacing anything already pending.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = d.clock.AfterFunc(d.delay, func() {
		if run := d.take(gen); run != nil {
			run()
		}
	})
}

// Cancel drops the pending callback, if any. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Flush runs the pending callback immediately, if any.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	run := d.pending
	d.cancelLocked()
	d.mu.Unlock()
	if run == nil {
		return false
	}
	run()
	return true
}

func (d *Debouncer) cancelLocked() bool {
	had := d.pending != nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.gen++
	return had
}

// take claims the callback for generation gen, or nil if it was superseded.
func (d *Debouncer) take(gen uint64) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return nil
	}
	run := d.pending
	d.pending = nil
	d.timer = nil
	return run
}
