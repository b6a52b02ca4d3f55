package renderer

import (
	"math"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// toonEdge is the half width of the lit/shade transition in N·L units.
const toonEdge = 0.05

// Material flags shared with the WGSL shader.
const (
	flagAlphaMask = 1
	flagUnlit     = 2
)

func materialFlags(m *model.Material) uint32 {
	var f uint32
	if m.AlphaMode == model.AlphaMask {
		f |= flagAlphaMask
	}
	if m.Unlit {
		f |= flagUnlit
	}
	return f
}

func smoothstep(edge0, edge1, x float32) float32 {
	t := common.Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// shadeLinear applies the two-light toon model to a linear base color.
// The key light picks between the lit color and the material's shade color;
// the fill light and ambient term add a soft diffuse contribution.
//
// Parameters:
//   - base: linear RGB of texel times base color
//   - m: the material providing shade and emissive colors
//   - n: the unit world normal
//   - l: the light rig
//
// Returns:
//   - [3]float32: the shaded linear color clamped to [0, 1]
func shadeLinear(base [3]float32, m *model.Material, n [3]float32, l *Lighting) [3]float32 {
	if m.Unlit {
		return clampColor(common.Vec3Add(base, m.Emissive))
	}

	toon := smoothstep(-toonEdge, toonEdge, common.Vec3Dot(n, l.KeyDirection))
	shade := [3]float32{base[0] * m.ShadeColor[0], base[1] * m.ShadeColor[1], base[2] * m.ShadeColor[2]}
	key := common.Vec3Scale(common.Vec3Lerp(shade, base, toon), l.KeyIntensity)

	fill := common.Vec3Dot(n, l.FillDirection)
	if fill < 0 {
		fill = 0
	}
	soft := common.Vec3Scale(base, l.Ambient+fill*l.FillIntensity)

	return clampColor(common.Vec3Add(common.Vec3Add(key, soft), m.Emissive))
}

func clampColor(c [3]float32) [3]float32 {
	return [3]float32{common.Clamp(c[0], 0, 1), common.Clamp(c[1], 0, 1), common.Clamp(c[2], 0, 1)}
}

// srgbToLinear maps an 8-bit sRGB channel to linear intensity.
var srgbToLinear [256]float32

// linearToSRGB maps a linear intensity quantized to 12 bits back to an 8-bit sRGB channel.
var linearToSRGB [4096]uint8

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = float32(math.Pow(float64(i)/255.0, 2.2))
	}
	for i := range linearToSRGB {
		linearToSRGB[i] = uint8(math.Pow(float64(i)/4095.0, 1/2.2)*255 + 0.5)
	}
}

func encodeSRGB(v float32) uint8 {
	return linearToSRGB[int(common.Clamp(v, 0, 1)*4095+0.5)]
}
