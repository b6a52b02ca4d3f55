package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/stretchr/testify/assert"
)

func TestFitToHeight_FramesHeightPlusMargin(t *testing.T) {
	// --- Arrange ---
	c := NewCamera()
	height := float32(1.5)

	// --- Act ---
	z := c.FitToHeight(height)

	// --- Assert ---
	want := (1.5 + 0.1) / -2 / math.Tan(15*math.Pi/180)
	assert.InDelta(t, want, float64(z), 1e-5)
	assert.Equal(t, [3]float32{0, 0, z}, c.Position())

	// The top of the margin-padded box projects onto the top edge of the frame.
	vp := c.ViewProjectionMatrix()
	top, w := common.ProjectPoint(vp[:], [3]float32{0, (height + FitMargin) / 2, 0})
	assert.Greater(t, w, float32(0))
	assert.InDelta(t, 1.0, float64(top[1]), 1e-4)
}

func TestCamera_LooksTowardPositiveZ(t *testing.T) {
	// --- Arrange ---
	c := NewCamera(WithPosition(0, 0, -3))

	// --- Act ---
	vp := c.ViewProjectionMatrix()
	front, wFront := common.ProjectPoint(vp[:], [3]float32{0, 0, 0})
	_, wBehind := common.ProjectPoint(vp[:], [3]float32{0, 0, -5})

	// --- Assert ---
	assert.Greater(t, wFront, float32(0))
	assert.Less(t, wBehind, float32(0))
	assert.InDelta(t, 0, float64(front[0]), 1e-6)
	assert.Equal(t, [3]float32{0, 0, -2}, c.Target())
}

func TestCamera_Defaults(t *testing.T) {
	c := NewCamera()

	assert.Equal(t, DefaultFov, c.Fov())
	assert.Equal(t, float32(0.1), c.Near())
	assert.Equal(t, float32(20), c.Far())
}

func TestCamera_SetAspectIgnoresInvalid(t *testing.T) {
	// --- Arrange ---
	c := NewCamera(WithAspect(0.5))

	// --- Act ---
	c.SetAspect(0)
	c.SetAspect(float32(math.Inf(1)))

	// --- Assert ---
	assert.Equal(t, float32(0.5), c.Aspect())
}
