package loadertest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Node indices of the avatar produced by Avatar.
const (
	NodeHips = iota
	NodeSpine
	NodeHead
	NodeLeftUpperArm
	NodeRightUpperArm
	NodeBody
	NodeHair
	NodeHairTip
)

// AvatarOptions selects the variant of the synthesized avatar.
type AvatarOptions struct {
	// MetaVersion is "0" for a VRM 0.x asset; anything else yields VRM 1.0.
	MetaVersion string

	// OmitBones lists humanoid bone names left out of the humanoid table.
	OmitBones []string

	// SpringBones adds a two-joint hair chain to the secondary animation.
	SpringBones bool

	// NoExtension drops the VRM extension, producing a plain glTF asset.
	NoExtension bool

	// BrokenAccessor makes the POSITION accessor claim more elements than its buffer view holds.
	BrokenAccessor bool
}

// Avatar synthesizes a minimal humanoid: hips at y=1, spine, head and both upper arms, a skinned
// triangle with a "blink" morph target, one textured material and an optional hair chain.
//
// The triangle spans x in [-0.5, 0.5] and y in [1, 1.8]. Its top vertex follows the spine and
// moves up by 0.2 at full blink.
func Avatar(opts AvatarOptions) []byte {
	b := NewBuilder()

	b.AddNode("hips", [3]float32{0, 1, 0}, NodeSpine)
	b.AddNode("spine", [3]float32{0, 0.2, 0}, NodeHead, NodeLeftUpperArm, NodeRightUpperArm)
	b.AddNode("head", [3]float32{0, 0.4, 0}, NodeHair)
	b.AddNode("leftUpperArm", [3]float32{0.2, 0.3, 0})
	b.AddNode("rightUpperArm", [3]float32{-0.2, 0.3, 0})
	b.AddNode("body", [3]float32{})
	b.AddNode("hair", [3]float32{0, 0.1, 0}, NodeHairTip)
	b.AddNode("hairTip", [3]float32{0, 0, 0.2})
	b.SceneNodes = []int{NodeHips, NodeBody}

	positions := b.AddFloats("VEC3", []float32{-0.5, 1, 0, 0.5, 1, 0, 0, 1.8, 0})
	if opts.BrokenAccessor {
		b.accessors[positions]["count"] = 1000
	}
	uvs := b.AddFloats("VEC2", []float32{0, 1, 1, 1, 0.5, 0})
	joints := b.AddJoints([][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {1, 0, 0, 0}})
	weights := b.AddFloats("VEC4", []float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0})
	indices := b.AddIndices([]uint16{0, 1, 2})
	blink := b.AddFloats("VEC3", []float32{0, 0, 0, 0, 0, 0, 0, 0.2, 0})

	b.Meshes = append(b.Meshes, map[string]any{
		"name": "body",
		"primitives": []any{map[string]any{
			"attributes": map[string]int{
				"POSITION":   positions,
				"TEXCOORD_0": uvs,
				"JOINTS_0":   joints,
				"WEIGHTS_0":  weights,
			},
			"indices":  indices,
			"material": 0,
			"targets":  []any{map[string]int{"POSITION": blink}},
		}},
		"extras": map[string]any{"targetNames": []string{"Blink"}},
	})
	b.Nodes[NodeBody]["mesh"] = 0
	b.Nodes[NodeBody]["skin"] = 0

	ibm := b.AddFloats("MAT4", append(translation(0, -1, 0), translation(0, -1.2, 0)...))
	b.Skins = append(b.Skins, map[string]any{
		"joints":              []int{NodeHips, NodeSpine},
		"inverseBindMatrices": ibm,
	})

	tex := b.AddImage(checkerPNG(), "image/png")
	b.Materials = append(b.Materials, map[string]any{
		"name": "skin",
		"pbrMetallicRoughness": map[string]any{
			"baseColorFactor":  []float32{1, 0.8, 0.7, 1},
			"baseColorTexture": map[string]any{"index": tex},
		},
		"extensions": map[string]any{
			"VRMC_materials_mtoon": map[string]any{"shadeColorFactor": []float32{0.5, 0.3, 0.3}},
		},
	})

	if opts.NoExtension {
		return b.Build()
	}

	bones := map[string]int{
		"hips":          NodeHips,
		"spine":         NodeSpine,
		"head":          NodeHead,
		"leftUpperArm":  NodeLeftUpperArm,
		"rightUpperArm": NodeRightUpperArm,
	}
	for _, name := range opts.OmitBones {
		delete(bones, name)
	}

	if opts.MetaVersion == "0" {
		b.Extensions["VRM"] = vrm0Extension(bones, opts.SpringBones)
	} else {
		b.Extensions["VRMC_vrm"] = vrm1Extension(bones)
		if opts.SpringBones {
			b.Extensions["VRMC_springBone"] = map[string]any{
				"specVersion": "1.0",
				"colliders": []any{map[string]any{
					"node":  NodeHead,
					"shape": map[string]any{"sphere": map[string]any{"offset": []float32{0, 0, 0}, "radius": 0.05}},
				}},
				"colliderGroups": []any{map[string]any{"colliders": []int{0}}},
				"springs": []any{map[string]any{
					"joints": []any{
						map[string]any{"node": NodeHair, "stiffness": 0.5, "gravityPower": 1, "dragForce": 0.4},
						map[string]any{"node": NodeHairTip},
					},
					"colliderGroups": []int{0},
				}},
			}
		}
	}
	return b.Build()
}

func vrm1Extension(bones map[string]int) map[string]any {
	humanBones := make(map[string]any, len(bones))
	for name, node := range bones {
		humanBones[name] = map[string]int{"node": node}
	}
	return map[string]any{
		"specVersion": "1.0",
		"meta":        map[string]any{"name": "Test Avatar"},
		"humanoid":    map[string]any{"humanBones": humanBones},
		"expressions": map[string]any{
			"preset": map[string]any{
				"blink": map[string]any{
					"morphTargetBinds": []any{map[string]any{"node": NodeBody, "index": 0, "weight": 1}},
				},
				"happy": map[string]any{},
			},
		},
	}
}

func vrm0Extension(bones map[string]int, springs bool) map[string]any {
	var humanBones []any
	for name, node := range bones {
		humanBones = append(humanBones, map[string]any{"bone": name, "node": node})
	}
	ext := map[string]any{
		"meta":     map[string]any{"title": "Test Avatar 0"},
		"humanoid": map[string]any{"humanBones": humanBones},
		"blendShapeMaster": map[string]any{
			"blendShapeGroups": []any{
				map[string]any{
					"name":       "Blink",
					"presetName": "blink",
					"binds":      []any{map[string]any{"mesh": 0, "index": 0, "weight": 100}},
				},
				map[string]any{"name": "Joy", "presetName": "joy"},
			},
		},
		"materialProperties": []any{map[string]any{
			"name":             "skin",
			"vectorProperties": map[string]any{"_ShadeColor": []float32{1, 1, 1, 1}},
		}},
	}
	if springs {
		ext["secondaryAnimation"] = map[string]any{
			"boneGroups": []any{map[string]any{
				"stiffiness":     0.5,
				"gravityPower":   1,
				"gravityDir":     map[string]float32{"x": 0, "y": -1, "z": 0},
				"dragForce":      0.4,
				"hitRadius":      0.02,
				"bones":          []int{NodeHair},
				"colliderGroups": []int{0},
			}},
			"colliderGroups": []any{map[string]any{
				"node":      NodeHead,
				"colliders": []any{map[string]any{"offset": map[string]float32{"x": 0, "y": 0, "z": 0}, "radius": 0.05}},
			}},
		}
	}
	return ext
}

// Node indices of the clip produced by Clip.
const (
	ClipNodeHips = iota
	ClipNodeSpine
	ClipNodeHead
	ClipNodeLeftUpperArm
	ClipNodeLeftLowerArm
	ClipNodeBlink
)

// ClipOptions configures the synthesized VRMA clip.
type ClipOptions struct {
	// Duration is the time of the last key. It defaults to 1.
	Duration float32

	// HipsHeight is the clip rig's rest hips height. It defaults to 1.
	HipsHeight float32

	// Bones lists the humanoid bones receiving a rotation track about Z from identity to Angle.
	// Supported names are spine, head, leftUpperArm and leftLowerArm. It defaults to spine.
	Bones []string

	// Angle is the final rotation of each animated bone, in radians. It defaults to π/2.
	Angle float32

	// HipsMotion adds a hips translation track rising by 10% of HipsHeight.
	HipsMotion bool

	// Expression, when set, adds a weight track 0 -> 1 -> 0 for the named expression.
	Expression string
}

// Clip synthesizes a VRMA clip whose rig has identity rest rotations.
func Clip(opts ClipOptions) []byte {
	if opts.Duration == 0 {
		opts.Duration = 1
	}
	if opts.HipsHeight == 0 {
		opts.HipsHeight = 1
	}
	if opts.Bones == nil {
		opts.Bones = []string{"spine"}
	}
	if opts.Angle == 0 {
		opts.Angle = math.Pi / 2
	}

	b := NewBuilder()
	b.AddNode("hips", [3]float32{0, opts.HipsHeight, 0}, ClipNodeSpine)
	b.AddNode("spine", [3]float32{0, 0.2, 0}, ClipNodeHead, ClipNodeLeftUpperArm)
	b.AddNode("head", [3]float32{0, 0.4, 0})
	b.AddNode("leftUpperArm", [3]float32{0.2, 0.3, 0}, ClipNodeLeftLowerArm)
	b.AddNode("leftLowerArm", [3]float32{0.3, 0, 0})
	b.AddNode("blink", [3]float32{})
	b.SceneNodes = []int{ClipNodeHips, ClipNodeBlink}

	nodeOf := map[string]int{
		"hips":         ClipNodeHips,
		"spine":        ClipNodeSpine,
		"head":         ClipNodeHead,
		"leftUpperArm": ClipNodeLeftUpperArm,
		"leftLowerArm": ClipNodeLeftLowerArm,
	}
	humanBones := make(map[string]any, len(nodeOf))
	for name, node := range nodeOf {
		humanBones[name] = map[string]int{"node": node}
	}
	ext := map[string]any{
		"specVersion": "1.0",
		"humanoid":    map[string]any{"humanBones": humanBones},
	}
	if opts.Expression != "" {
		ext["expressions"] = map[string]any{
			"preset": map[string]any{opts.Expression: map[string]int{"node": ClipNodeBlink}},
		}
	}
	b.Extensions["VRMC_vrm_animation"] = ext

	times := b.AddFloats("SCALAR", []float32{0, opts.Duration})
	s, c := float32(math.Sin(float64(opts.Angle)/2)), float32(math.Cos(float64(opts.Angle)/2))

	var samplers, channels []any
	addChannel := func(node int, path string, input, output int) {
		samplers = append(samplers, map[string]any{"input": input, "output": output})
		channels = append(channels, map[string]any{
			"sampler": len(samplers) - 1,
			"target":  map[string]any{"node": node, "path": path},
		})
	}

	for _, name := range opts.Bones {
		node, ok := nodeOf[name]
		if !ok {
			continue
		}
		out := b.AddFloats("VEC4", []float32{0, 0, 0, 1, 0, 0, s, c})
		addChannel(node, "rotation", times, out)
	}
	if opts.HipsMotion {
		h := opts.HipsHeight
		out := b.AddFloats("VEC3", []float32{0, h, 0, 0, h * 1.1, 0})
		addChannel(ClipNodeHips, "translation", times, out)
	}
	if opts.Expression != "" {
		exprTimes := b.AddFloats("SCALAR", []float32{0, opts.Duration / 2, opts.Duration})
		out := b.AddFloats("VEC3", []float32{0, 0, 0, 1, 0, 0, 0, 0, 0})
		addChannel(ClipNodeBlink, "translation", exprTimes, out)
	}

	b.Animations = append(b.Animations, map[string]any{
		"name":     "clip",
		"samplers": samplers,
		"channels": channels,
	})
	return b.Build()
}

// translation returns a column-major translation matrix.
func translation(x, y, z float32) []float32 {
	return []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, x, y, z, 1}
}

// checkerPNG encodes a 2x2 checkerboard.
func checkerPNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{255, 255, 255, 255})
	img.Set(1, 1, color.NRGBA{255, 255, 255, 255})
	img.Set(1, 0, color.NRGBA{0, 0, 0, 255})
	img.Set(0, 1, color.NRGBA{0, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
