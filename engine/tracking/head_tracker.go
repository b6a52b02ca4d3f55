package tracking

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

const (
	// DefaultPollInterval is how often the head tracker samples the global cursor.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultMaxAngle bounds the head pitch and yaw, in radians.
	DefaultMaxAngle = math.Pi / 4
)

// CursorSource reports the pointer position in screen coordinates. It must be safe to call from any goroutine.
type CursorSource interface {
	GlobalCursor() (float64, float64)
}

// Host is the surface the head tracker follows. window.Window satisfies it.
// Position and MonitorBounds are only called from the frame thread.
type Host interface {
	CursorSource

	// Position returns the window position in screen coordinates.
	Position() (int, int)

	// MonitorBounds returns the position and size of the monitor hosting the window.
	MonitorBounds() (x, y, width, height int)
}

// HeadTracker turns the avatar's head toward the global cursor.
// A background goroutine samples the cursor; Update applies the latest sample on the frame thread.
type HeadTracker struct {
	host     Host
	interval time.Duration
	maxAngle float64

	mu       sync.Mutex
	cursorX  float64
	cursorY  float64
	sampled  bool
	cancel   context.CancelFunc
	finished chan struct{}
}

// NewHeadTracker creates a HeadTracker for the given host. The tracker is idle until Start is called.
//
// Parameters:
//   - host: the window whose position and monitor frame the head angles
//   - options: variadic list of HeadTrackerBuilderOption functions
//
// Returns:
//   - *HeadTracker: the tracker
func NewHeadTracker(host Host, options ...HeadTrackerBuilderOption) *HeadTracker {
	t := &HeadTracker{
		host:     host,
		interval: DefaultPollInterval,
		maxAngle: DefaultMaxAngle,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Start launches the sampling goroutine. It stops when ctx is cancelled or Stop is called.
// Calling Start on a running tracker is a no-op.
//
// Parameters:
//   - ctx: the lifetime of the sampler
func (t *HeadTracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.finished = make(chan struct{})
	finished := t.finished
	t.mu.Unlock()

	go func() {
		defer close(finished)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		t.Poll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Poll()
			}
		}
	}()
}

// Stop halts the sampling goroutine and waits for it to exit.
func (t *HeadTracker) Stop() {
	t.mu.Lock()
	cancel, finished := t.cancel, t.finished
	t.cancel, t.finished = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-finished
}

// Poll records the current global cursor position.
func (t *HeadTracker) Poll() {
	x, y := t.host.GlobalCursor()
	t.mu.Lock()
	t.cursorX, t.cursorY = x, y
	t.sampled = true
	t.mu.Unlock()
}

// Sample returns the last recorded cursor position.
//
// Returns:
//   - float64, float64: the position in screen coordinates
//   - bool: false until the first poll
func (t *HeadTracker) Sample() (float64, float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursorX, t.cursorY, t.sampled
}

// Update writes the head pitch and yaw for the latest cursor sample. Its signature matches the engine's
// geometry callback so it can be installed with SetGeometryCallback.
//
// Parameters:
//   - avatar: the bound avatar, or nil
//
// Returns:
//   - bool: true if the head bone was written
func (t *HeadTracker) Update(avatar *model.Avatar) bool {
	if avatar == nil {
		return false
	}
	head, ok := avatar.Bone(model.BoneHead)
	if !ok {
		return false
	}
	cx, cy, ok := t.Sample()
	if !ok {
		return false
	}
	monX, monY, monW, monH := t.host.MonitorBounds()
	edgeX, edgeY := monX+monW, monY+monH
	if monW <= 0 || monH <= 0 || edgeX <= 0 || edgeY <= 0 {
		return false
	}
	winX, winY := t.host.Position()

	pitch, yaw := HeadAngles(cx, cy, winX, winY, edgeX, edgeY, t.maxAngle)
	e := head.Euler()
	e[0] = float32(pitch)
	e[1] = float32(yaw)
	head.SetEuler(e)
	return true
}

// HeadAngles maps the cursor offset from the window origin onto head angles. The offset is scaled by the
// monitor's far edge in screen coordinates (position plus size).
//
// Parameters:
//   - cursorX, cursorY: the cursor in screen coordinates
//   - winX, winY: the window position in screen coordinates
//   - edgeX, edgeY: the monitor's right and bottom edges in screen coordinates (must be positive)
//   - maxAngle: the bound applied to both angles
//
// Returns:
//   - float64: pitch (rotation about X), positive when the cursor is above the window
//   - float64: yaw (rotation about Y), positive when the cursor is right of the window
func HeadAngles(cursorX, cursorY float64, winX, winY, edgeX, edgeY int, maxAngle float64) (float64, float64) {
	yaw := maxAngle * (cursorX - float64(winX)) / float64(edgeX)
	pitch := maxAngle * (float64(winY) - cursorY) / float64(edgeY)
	return clamp(pitch, maxAngle), clamp(yaw, maxAngle)
}

func clamp(v, limit float64) float64 {
	return math.Max(math.Min(v, limit), -limit)
}
