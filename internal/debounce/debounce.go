// Package debounce collapses bursts of values into the last one.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period used when none is given.
const DefaultWindow = 150 * time.Millisecond

// Debouncer delivers the last value pushed once no new value arrived for a
// full window. It has two transitions: Push stores a pending value and
// restarts the timer; timer expiry hands the pending value to the callback.
type Debouncer[T any] struct {
	window time.Duration
	fire   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	armed   bool
	gen     uint64
}

// New creates a Debouncer calling fire on its own goroutine.
func New[T any](window time.Duration, fire func(T)) *Debouncer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer[T]{window: window, fire: fire}
}

// Push records v and restarts the quiet window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = v
	d.armed = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.expire(gen) })
}

// Pending reports whether a value is waiting for the window to close.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Flush fires immediately if a value is pending.
func (d *Debouncer[T]) Flush() {
	v, ok := d.take(0, false)
	if ok {
		d.fire(v)
	}
}

// Take clears the pending value and returns it without calling fire. It is
// for callers that must deliver the value on their own goroutine.
func (d *Debouncer[T]) Take() (T, bool) {
	return d.take(0, false)
}

// Stop cancels the timer and drops the pending value.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.pending = zero
	d.armed = false
	d.gen++
}

func (d *Debouncer[T]) expire(gen uint64) {
	v, ok := d.take(gen, true)
	if ok {
		d.fire(v)
	}
}

// take clears the pending value. With checkGen set it only succeeds for the
// timer generation that is still current, so a timer that lost the race
// against Push or Stop does nothing.
func (d *Debouncer[T]) take(gen uint64, checkGen bool) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	if !d.armed || (checkGen && gen != d.gen) {
		return zero, false
	}
	v := d.pending
	d.pending = zero
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return v, true
}
