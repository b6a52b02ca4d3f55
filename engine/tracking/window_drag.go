package tracking

import (
	"math"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/input"
)

// Mover is a window that can be repositioned.
type Mover interface {
	Move(x, y int)
	Position() (int, int)
}

// WindowDrag moves the host window while the left button alone is held.
// The grab offset between the cursor and the window origin is captured on press and kept for the drag.
type WindowDrag struct {
	host     Mover
	dragging bool
	offsetX  float64
	offsetY  float64
}

// NewWindowDrag creates a WindowDrag for host.
func NewWindowDrag(host Mover) *WindowDrag {
	return &WindowDrag{host: host}
}

// Dragging reports whether a drag is in progress.
func (d *WindowDrag) Dragging() bool {
	return d.dragging
}

// Update consumes one frame of input.
//
// Parameters:
//   - s: the frame's input snapshot
//
// Returns:
//   - bool: true if the window was moved
func (d *WindowDrag) Update(s input.Snapshot) bool {
	left := s.Buttons[common.MouseLeft]
	right := s.Buttons[common.MouseRight]

	if d.dragging && (!left || right || s.Left) {
		d.dragging = false
		return false
	}

	if !d.dragging {
		if !s.Pressed[common.MouseLeft] || !left || right {
			return false
		}
		wx, wy := d.host.Position()
		d.offsetX = s.GlobalX - float64(wx)
		d.offsetY = s.GlobalY - float64(wy)
		d.dragging = true
		return false
	}

	x := int(math.Round(s.GlobalX - d.offsetX))
	y := int(math.Round(s.GlobalY - d.offsetY))
	if wx, wy := d.host.Position(); wx == x && wy == y {
		return false
	}
	d.host.Move(x, y)
	return true
}
