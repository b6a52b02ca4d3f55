package engine

import (
	"time"

	"github.com/Carmen-Shannon/deskvrm/engine/animator"
	"github.com/Carmen-Shannon/deskvrm/engine/camera"
	"github.com/Carmen-Shannon/deskvrm/engine/input"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/Carmen-Shannon/deskvrm/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets the window the engine sizes, reads input from and runs its message loop on.
// The window also becomes the host surface.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
		e.surface = w
		e.input = w.Input()
	}
}

// WithHostSurface sets the surface sized to the avatar without a window message loop.
//
// Parameters:
//   - s: the host surface
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithHostSurface(s HostSurface) EngineBuilderOption {
	return func(e *engine) {
		e.surface = s
	}
}

// WithInputQueue sets the queue drained once per frame.
func WithInputQueue(q *input.Queue) EngineBuilderOption {
	return func(e *engine) {
		e.input = q
	}
}

// WithRenderer sets the renderer. Without one the engine animates and fits but draws nothing.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r FrameRenderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithCamera replaces the default framing camera.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithLoader replaces the default glTF loader used by LoadAvatar and the clip manager.
func WithLoader(l loader.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
	}
}

// WithAnimator replaces the default procedural animator.
func WithAnimator(a animator.Animator) EngineBuilderOption {
	return func(e *engine) {
		e.animator = a
	}
}

// WithClipManager replaces the default clip manager.
func WithClipManager(m animator.ClipManager) EngineBuilderOption {
	return func(e *engine) {
		e.clips = m
	}
}

// WithPlayOptions sets the options used when a hotkey starts a clip.
func WithPlayOptions(opts animator.PlayOptions) EngineBuilderOption {
	return func(e *engine) {
		e.playOptions = opts
	}
}

// WithClock sets the time source used for frame deltas and the shadow debounce.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(now func() time.Time) EngineBuilderOption {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithBaseHeight sets the surface height at zero zoom. Values <= 0 keep the default of 500.
func WithBaseHeight(height float64) EngineBuilderOption {
	return func(e *engine) {
		if height > 0 {
			e.baseHeight = height
		}
	}
}

// WithShadowDebounce sets the trailing-edge window of the shadow refresh.
func WithShadowDebounce(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if d >= 0 {
			e.shadowWindow = d
		}
	}
}

// WithWindowDrag enables or disables moving the window with a left-button drag. Enabled by default.
func WithWindowDrag(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.dragEnabled = enabled
	}
}

// WithLoadWorkers sets the number of worker pool goroutines parsing assets.
// Values <= 0 keep the default of 2.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoadWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithVerbose logs surface resizes.
func WithVerbose(verbose bool) EngineBuilderOption {
	return func(e *engine) {
		e.verbose = verbose
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
