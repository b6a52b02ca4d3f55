package engine

import "time"

// DefaultShadowDebounce is the trailing-edge window of the shadow refresh.
const DefaultShadowDebounce = 16 * time.Millisecond

// Debouncer coalesces triggers into one trailing call.
// The first trigger arms a deadline; triggers while armed are no-ops and do not extend it.
// Poll runs the call once the deadline has passed. It is driven by the frame clock and is not
// safe for concurrent use.
type Debouncer struct {
	window   time.Duration
	fn       func()
	pending  bool
	deadline time.Time
}

// NewDebouncer creates a Debouncer.
//
// Parameters:
//   - window: the delay between the first trigger and the call
//   - fn: the call to debounce
//
// Returns:
//   - *Debouncer: the debouncer
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Trigger arms the debouncer unless it is already pending.
//
// Parameters:
//   - now: the current frame time
//
// Returns:
//   - bool: true if this trigger armed a new deadline
func (d *Debouncer) Trigger(now time.Time) bool {
	if d.pending {
		return false
	}
	d.pending = true
	d.deadline = now.Add(d.window)
	return true
}

// Poll runs the call if a deadline is armed and has passed.
//
// Parameters:
//   - now: the current frame time
//
// Returns:
//   - bool: true if the call ran
func (d *Debouncer) Poll(now time.Time) bool {
	if !d.pending || now.Before(d.deadline) {
		return false
	}
	d.pending = false
	if d.fn != nil {
		d.fn()
	}
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	return d.pending
}

// Cancel drops a scheduled call.
func (d *Debouncer) Cancel() {
	d.pending = false
}
