package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// gltfNodeChannel is one decoded animation channel targeting a glTF node.
// Values are flattened: 4 per key for rotation, 3 per key for translation.
type gltfNodeChannel struct {
	Node          int
	Path          string
	Interpolation model.Interpolation
	Times         []float32
	Values        []float32
}

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
}

// gltfAnimationExtractor defines the interface for extracting raw node animation channels from a parsed glTF document.
// Channels are returned in node space; retargeting onto an avatar happens in the VRMA extractor.
type gltfAnimationExtractor interface {
	// ExtractChannels extracts the translation and rotation channels of one animation.
	// Scale and morph weight channels are skipped. CUBICSPLINE samplers are reduced to their keyframe values
	// and played back linearly.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - []gltfNodeChannel: the decoded channels
	//   - error: error if extraction fails
	ExtractChannels(animIndex int) ([]gltfNodeChannel, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser}
}

func (e *gltfAnimationExtractorImpl) ExtractChannels(animIndex int) ([]gltfNodeChannel, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range: %w", animIndex, ErrMalformedAccessor)
	}

	anim := &doc.Animations[animIndex]
	var channels []gltfNodeChannel

	for i := range anim.Channels {
		ch := &anim.Channels[i]

		// Skip channels with no target node
		if ch.Target.Node == nil {
			continue
		}

		var stride int
		switch ch.Target.Path {
		case gltfAnimPathTranslation:
			stride = 3
		case gltfAnimPathRotation:
			stride = 4
		default:
			continue
		}

		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d: %w", anim.Name, i, ch.Sampler, ErrMalformedAccessor)
		}
		sampler := &anim.Samplers[ch.Sampler]

		times, err := e.parser.ReadScalarAccessor(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", anim.Name, i, err)
		}
		values, comps, err := e.parser.ReadFloats(sampler.Output)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read values: %w", anim.Name, i, err)
		}
		if comps != stride {
			return nil, fmt.Errorf("animation %q channel %d: %s output has %d components: %w", anim.Name, i, ch.Target.Path, comps, ErrMalformedAccessor)
		}

		interp := model.InterpolationLinear
		switch sampler.Interpolation {
		case gltfAnimInterpolationStep:
			interp = model.InterpolationStep
		case gltfAnimInterpolationCubicSpline:
			values = cubicSplineKeyValues(values, stride)
		}

		n := min(len(times), len(values)/stride)
		channels = append(channels, gltfNodeChannel{
			Node:          *ch.Target.Node,
			Path:          ch.Target.Path,
			Interpolation: interp,
			Times:         times[:n],
			Values:        values[:n*stride],
		})
	}

	return channels, nil
}

// cubicSplineKeyValues keeps the value element of each (in-tangent, value, out-tangent) triple.
func cubicSplineKeyValues(values []float32, stride int) []float32 {
	keys := len(values) / (3 * stride)
	out := make([]float32, 0, keys*stride)
	for k := 0; k < keys; k++ {
		base := (k*3 + 1) * stride
		out = append(out, values[base:base+stride]...)
	}
	return out
}
