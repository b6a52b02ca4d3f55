package window

import "github.com/Carmen-Shannon/deskvrm/engine/input"

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithWidth sets the initial window width.
//
// Parameters:
//   - width: initial width in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithWidth(width int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
	}
}

// WithHeight sets the initial window height.
//
// Parameters:
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeight(height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.height = height
	}
}

// WithTransparent toggles the transparent framebuffer.
func WithTransparent(transparent bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.transparent = transparent
	}
}

// WithFloating toggles always-on-top.
func WithFloating(floating bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.floating = floating
	}
}

// WithDecorated toggles the title bar and border.
func WithDecorated(decorated bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.decorated = decorated
	}
}

// WithInputQueue routes input events into an existing queue.
//
// Parameters:
//   - q: the queue to feed
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithInputQueue(q *input.Queue) WindowBuilderOption {
	return func(w *engineWindow) {
		w.queue = q
	}
}
