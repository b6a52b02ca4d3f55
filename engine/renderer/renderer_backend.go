package renderer

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU backend, which presents to a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU rasterizer, which renders into an in-memory RGBA frame.
	BackendTypeSoftware
)

// String returns the config name of the backend type.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeSoftware:
		return "software"
	default:
		return "wgpu"
	}
}

// ParseBackendType maps a config name to a backend type. Unknown names select wgpu.
func ParseBackendType(name string) RendererBackendType {
	if name == "software" {
		return BackendTypeSoftware
	}
	return BackendTypeWGPU
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// RendererBackend draws prepared frames. Implementations own their surface or pixel buffer.
type RendererBackend interface {
	// ConfigureSurface (re)allocates the color and depth targets for a new size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets how frames are delivered to the display. Ignored by offscreen backends.
	SetPresentMode(mode PresentMode)

	// Draw renders one frame. A nil frame clears the target to transparent.
	//
	// Parameters:
	//   - f: the prepared frame, or nil
	//
	// Returns:
	//   - error: an error if the target could not be acquired
	Draw(f *frameData) error

	// Release frees every GPU or CPU resource held by the backend.
	Release()
}
