package input

import (
	"sync"

	"github.com/Carmen-Shannon/deskvrm/common"
)

// ButtonCount is the number of tracked mouse buttons (left, right, middle).
const ButtonCount = 3

// WheelNotch is the wheel delta of one notch, in DOM units.
const WheelNotch = 100

// Snapshot is the pointer and keyboard state sampled once per frame.
type Snapshot struct {
	// X and Y are the pointer position in window coordinates.
	X, Y float64

	// GlobalX and GlobalY are the pointer position in screen coordinates.
	GlobalX, GlobalY float64

	// DX and DY are the pointer movement since the previous snapshot.
	DX, DY float64

	// WheelDelta is the accumulated wheel delta in DOM convention: positive when the wheel rolls toward the user.
	WheelDelta float64

	// Buttons holds the buttons currently held, indexed by common.MouseLeft and friends.
	Buttons [ButtonCount]bool

	// Pressed and Released report button edges since the previous snapshot.
	Pressed  [ButtonCount]bool
	Released [ButtonCount]bool

	// Left is set when the pointer left the window since the previous snapshot.
	Left bool

	// Keys are the key presses since the previous snapshot, in order.
	Keys []uint32
}

// Held reports whether every given button is held.
func (s Snapshot) Held(buttons ...int) bool {
	for _, b := range buttons {
		if b < 0 || b >= ButtonCount || !s.Buttons[b] {
			return false
		}
	}
	return len(buttons) > 0
}

// AnyReleased reports whether any button was released since the previous snapshot.
func (s Snapshot) AnyReleased() bool {
	for _, r := range s.Released {
		if r {
			return true
		}
	}
	return false
}

// Queue collects window input callbacks between frames. Drain hands the frame one Snapshot.
// It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending Snapshot
	hasPos  bool
}

// NewQueue creates an empty input queue.
//
// Returns:
//   - *Queue: the queue
func NewQueue() *Queue {
	return &Queue{}
}

// MoveTo records a pointer position and accumulates the movement from the previous position.
//
// Parameters:
//   - x, y: the position in window coordinates
//   - globalX, globalY: the position in screen coordinates
func (q *Queue) MoveTo(x, y, globalX, globalY float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := &q.pending
	if q.hasPos {
		p.DX += x - p.X
		p.DY += y - p.Y
	}
	p.X, p.Y = x, y
	p.GlobalX, p.GlobalY = globalX, globalY
	q.hasPos = true
}

// Scroll accumulates a wheel delta in DOM convention.
func (q *Queue) Scroll(deltaY float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.WheelDelta += deltaY
}

// Press records a button press. Unknown buttons are ignored.
func (q *Queue) Press(button int) {
	if button < 0 || button >= ButtonCount {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.Buttons[button] = true
	q.pending.Pressed[button] = true
}

// Release records a button release. Unknown buttons are ignored.
func (q *Queue) Release(button int) {
	if button < 0 || button >= ButtonCount {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.Buttons[button] = false
	q.pending.Released[button] = true
}

// Leave records that the pointer left the window. Held buttons are released since their release
// events will not be delivered.
func (q *Queue) Leave() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for b := range q.pending.Buttons {
		if q.pending.Buttons[b] {
			q.pending.Buttons[b] = false
			q.pending.Released[b] = true
		}
	}
	q.pending.Left = true
	q.hasPos = false
}

// Key records a key press.
func (q *Queue) Key(code uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.Keys = append(q.pending.Keys, code)
}

// Drain returns the state accumulated since the previous call and clears the per-frame fields.
// Position and held buttons carry over.
//
// Returns:
//   - Snapshot: the frame's input
func (q *Queue) Drain() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.pending
	q.pending = Snapshot{
		X:       s.X,
		Y:       s.Y,
		GlobalX: s.GlobalX,
		GlobalY: s.GlobalY,
		Buttons: s.Buttons,
	}
	return s
}

// IsRotateGesture reports whether the snapshot holds the two-button rotate gesture.
func IsRotateGesture(s Snapshot) bool {
	return s.Held(common.MouseLeft, common.MouseRight)
}
