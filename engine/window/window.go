package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/deskvrm/engine/input"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides the platform host surface for the avatar: a transparent, undecorated, always-on-top
// window that the render loop resizes and moves. Input events are forwarded to an input.Queue.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// Input returns the queue receiving this window's input events.
	Input() *input.Queue

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int

	// Resize requests a new client size in screen coordinates.
	//
	// Parameters:
	//   - width, height: the new size
	Resize(width, height int)

	// Move places the window's top-left corner at the given screen position.
	Move(x, y int)

	// Position returns the window's top-left corner in screen coordinates.
	Position() (x, y int)

	// InvalidateShadow asks the compositor to recompute the window's drop shadow from its current contents.
	InvalidateShadow()

	// ShadowInvalidations returns how many times InvalidateShadow has been called.
	ShadowInvalidations() uint64

	// SetCursorGrab captures or releases the pointer.
	//
	// Parameters:
	//   - grab: true to capture the pointer
	SetCursorGrab(grab bool)

	// GlobalCursor returns the last pointer position in screen coordinates sampled by the message loop.
	// It is safe to call from any goroutine.
	GlobalCursor() (x, y float64)

	// MonitorBounds returns the primary monitor position and size in screen coordinates.
	// It is safe to call from any goroutine.
	MonitorBounds() (x, y, width, height int)
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title.
	title string

	// width is the current framebuffer width in pixels.
	width int

	// height is the current framebuffer height in pixels.
	height int

	transparent bool
	floating    bool
	decorated   bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	queue *input.Queue

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the framebuffer is resized.
	onResize func(width, height int)

	// mu guards the values read off the main thread.
	mu                  sync.Mutex
	cursorX, cursorY    float64
	monitorX, monitorY  int
	monitorW, monitorH  int
	shadowInvalidations uint64
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
// Panics if the platform window cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:       "deskvrm",
		width:       300,
		height:      500,
		transparent: true,
		floating:    true,
		decorated:   false,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.queue == nil {
		w.queue = input.NewQueue()
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) Input() *input.Queue {
	return w.queue
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	platformResize(w, width, height)
}

func (w *engineWindow) Move(x, y int) {
	platformMove(w, x, y)
}

func (w *engineWindow) Position() (int, int) {
	return platformPosition(w)
}

func (w *engineWindow) InvalidateShadow() {
	w.mu.Lock()
	w.shadowInvalidations++
	w.mu.Unlock()
	platformInvalidateShadow(w)
}

func (w *engineWindow) ShadowInvalidations() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shadowInvalidations
}

func (w *engineWindow) SetCursorGrab(grab bool) {
	platformSetCursorGrab(w, grab)
}

func (w *engineWindow) GlobalCursor() (float64, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursorX, w.cursorY
}

func (w *engineWindow) MonitorBounds() (int, int, int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.monitorX, w.monitorY, w.monitorW, w.monitorH
}

// storeCursor caches the global cursor position for readers on other goroutines.
func (w *engineWindow) storeCursor(x, y float64) {
	w.mu.Lock()
	w.cursorX, w.cursorY = x, y
	w.mu.Unlock()
}
