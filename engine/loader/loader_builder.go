package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithArmRestAngle is an option builder that sets the baseline upper-arm roll in radians.
// The left arm is rolled by +angle and the right arm by -angle.
//
// Parameters:
//   - angle: the roll angle in radians
//
// Returns:
//   - LoaderBuilderOption: a function that applies the arm angle option to a loader
func WithArmRestAngle(angle float32) LoaderBuilderOption {
	return func(l *loader) {
		l.armRestAngle = angle
	}
}

// WithMaxTextureSize is an option builder that sets the largest texture side kept after decoding.
// Larger textures are downscaled; 0 keeps textures at full size.
//
// Parameters:
//   - size: the maximum side length in pixels
//
// Returns:
//   - LoaderBuilderOption: a function that applies the texture size option to a loader
func WithMaxTextureSize(size int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxTextureSize = size
	}
}
