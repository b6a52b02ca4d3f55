package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/deskvrm/common"
)

const (
	// DefaultFov is the vertical field of view in radians (30 degrees).
	DefaultFov float32 = 30.0 * (math.Pi / 180.0)

	DefaultNear float32 = 0.1
	DefaultFar  float32 = 20.0

	// FitMargin is the vertical margin added to the framed height by FitToHeight.
	FitMargin float32 = 0.1
)

type cameraImpl struct {
	mu *sync.Mutex

	up       [3]float32
	position [3]float32
	target   [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32
}

// Camera defines the interface for the perspective camera that frames the avatar.
// The camera sits on the Z axis and looks toward +Z.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Position returns the camera position in world space.
	Position() [3]float32

	// Target returns the point the camera looks at.
	Target() [3]float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the current combined view-projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// SetFov sets the field of view in radians and recomputes matrices.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	SetFar(far float32)

	// SetPosition moves the camera and recomputes matrices. The camera keeps looking toward +Z.
	//
	// Parameters:
	//   - x, y, z: the new position
	SetPosition(x, y, z float32)

	// FitToHeight places the camera at (0, 0, z) so that a box of the given height centered at the origin,
	// plus FitMargin, exactly fills the vertical field of view.
	//
	// Parameters:
	//   - height: the framed height in world units
	//
	// Returns:
	//   - float32: the camera z coordinate
	FitToHeight(height float32) float32
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with the default avatar framing: 30° vertical fov, near 0.1, far 20,
// positioned at (0, 0, -2.8) looking toward +Z.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		up:       [3]float32{0, 1, 0},
		position: [3]float32{0, 0, -2.8},
		fov:      DefaultFov,
		aspect:   1.0,
		near:     DefaultNear,
		far:      DefaultFar,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

// FitDistance returns the camera z that frames height (plus FitMargin) in a vertical field of view of fov radians.
// The result is negative: the camera sits on the -Z side of the origin.
//
// Parameters:
//   - height: the framed height in world units
//   - fov: the vertical field of view in radians
//
// Returns:
//   - float32: the camera z coordinate
func FitDistance(height, fov float32) float32 {
	tan := float32(math.Tan(float64(fov) / 2))
	return (height + FitMargin) / -2 / tan
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect <= 0 || math.IsNaN(float64(aspect)) || math.IsInf(float64(aspect), 0) {
		return
	}
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) FitToHeight(height float32) float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := FitDistance(height, c.fov)
	c.position = [3]float32{0, 0, z}
	c.updateMatrices()
	return z
}

// updateMatrices recalculates the view, projection and view-projection matrices. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.target = [3]float32{c.position[0], c.position[1], c.position[2] + 1}

	common.LookAt(c.viewMatrix[:],
		c.position[0], c.position[1], c.position[2],
		c.target[0], c.target[1], c.target[2],
		c.up[0], c.up[1], c.up[2],
	)

	common.Perspective(c.projectionMatrix[:],
		c.fov, c.aspect, c.near, c.far,
	)

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
