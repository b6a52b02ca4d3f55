package renderer

import (
	"image"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/camera"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
)

// Surface is the window-side source of a WebGPU surface.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// Lighting is the two directional light rig used to shade the avatar.
// Directions point from the surface toward the light.
type Lighting struct {
	KeyDirection  [3]float32
	KeyIntensity  float32
	FillDirection [3]float32
	FillIntensity float32
	Ambient       float32
}

// DefaultLighting returns a key light from the camera side and a dim fill from below.
//
// Returns:
//   - Lighting: the default rig
func DefaultLighting() Lighting {
	return Lighting{
		KeyDirection:  [3]float32{0, 0, -1},
		KeyIntensity:  1,
		FillDirection: common.Vec3Normalize([3]float32{-0.5, -3, -10}),
		FillIntensity: 0.25,
		Ambient:       0.2,
	}
}

// defaultMaterial shades primitives that reference no material.
var defaultMaterial = &model.Material{
	Name:        "default",
	BaseColor:   [4]float32{1, 1, 1, 1},
	ShadeColor:  [3]float32{0.8, 0.8, 0.8},
	AlphaMode:   model.AlphaOpaque,
	AlphaCutoff: 0.5,
}

// primitiveKey identifies one drawn primitive of an avatar.
type primitiveKey struct {
	instance  int
	primitive int
}

// drawItem is one skinned primitive ready for rasterization.
type drawItem struct {
	key       primitiveKey
	prim      *model.Primitive
	positions [][3]float32
	normals   [][3]float32

	material      *model.Material
	materialIndex int
}

// frameData is everything a backend needs to draw one frame.
type frameData struct {
	avatar   *model.Avatar
	viewProj [16]float32
	model    [16]float32
	lighting Lighting
	draws    []drawItem
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	width, height int
	lighting      Lighting
	frame         frameData

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer draws an avatar from a camera's point of view.
//
// The Renderer skins the avatar on the CPU and hands the result to its backend: the wgpu backend presents to
// a window surface, the software backend rasterizes into an RGBA frame that can be read back with Frame.
type Renderer interface {
	// Render draws one frame. A nil avatar clears the target to transparent.
	//
	// Parameters:
	//   - avatar: the avatar to draw, or nil
	//   - cam: the camera providing the view-projection matrix
	//
	// Returns:
	//   - error: an error if the backend could not acquire its target
	Render(avatar *model.Avatar, cam camera.Camera) error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// Size returns the current target size in pixels.
	Size() (width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SetLighting replaces the light rig used by later frames.
	SetLighting(l Lighting)

	// Frame returns a copy of the last rendered frame for the software backend, or nil for wgpu.
	Frame() *image.NRGBA

	// BackendType returns the backend in use.
	BackendType() RendererBackendType

	// Release frees the backend's resources. The Renderer must not be used afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type.
// The wgpu backend requires a surface; the software backend ignores it and sizes itself from WithSize
// (or the surface, when one is given). Panics if the wgpu device cannot be created.
//
// Parameters:
//   - backendType: the backend to use
//   - surface: the window providing the WebGPU surface, may be nil for the software backend
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		width:       300,
		height:      500,
		lighting:    DefaultLighting(),
	}
	if surface != nil {
		r.width, r.height = surface.Width(), surface.Height()
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend()
	default:
		if surface == nil {
			panic("wgpu renderer requires a surface")
		}
		r.backend = newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(r.width, r.height)
	return r
}

func (r *renderer) Render(avatar *model.Avatar, cam camera.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if avatar == nil || cam == nil {
		return r.backend.Draw(nil)
	}
	r.prepareFrame(avatar, cam)
	return r.backend.Draw(&r.frame)
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SetLighting(l Lighting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lighting = l
}

func (r *renderer) Frame() *image.NRGBA {
	sw, ok := r.backend.(*softwareRendererBackendImpl)
	if !ok {
		return nil
	}
	return sw.snapshot()
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Release()
}

// prepareFrame skins the avatar and fills r.frame, reusing its draw slice.
// Opaque and masked primitives come first; blended primitives are drawn last in asset order.
func (r *renderer) prepareFrame(avatar *model.Avatar, cam camera.Camera) {
	avatar.UpdateWorld()
	skinned := avatar.Skin()

	f := &r.frame
	f.avatar = avatar
	f.viewProj = cam.ViewProjectionMatrix()
	avatar.RootMatrix(f.model[:])
	f.lighting = r.lighting
	f.draws = f.draws[:0]

	meshes := avatar.Meshes()
	instances := avatar.Instances()
	materials := avatar.Materials()
	for i := range skinned {
		sp := &skinned[i]
		inst := instances[sp.Instance]
		prim := &meshes[inst.Mesh].Primitives[sp.Primitive]

		mat, matIdx := defaultMaterial, -1
		if prim.Material >= 0 && prim.Material < len(materials) {
			mat, matIdx = materials[prim.Material], prim.Material
		}
		f.draws = append(f.draws, drawItem{
			key:           primitiveKey{instance: sp.Instance, primitive: sp.Primitive},
			prim:          prim,
			positions:     sp.Positions,
			normals:       sp.Normals,
			material:      mat,
			materialIndex: matIdx,
		})
	}

	sort.SliceStable(f.draws, func(i, j int) bool {
		return f.draws[i].material.AlphaMode != model.AlphaBlend && f.draws[j].material.AlphaMode == model.AlphaBlend
	})
}
