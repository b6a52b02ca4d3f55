package model

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAvatar builds hips -> spine -> {head, leftUpperArm, rightUpperArm} plus a skinned triangle bound to hips and spine.
func newTestAvatar(t *testing.T) *Avatar {
	t.Helper()

	nodes := []*Node{
		NewNode("hips", 0),
		NewNode("spine", 1),
		NewNode("head", 2),
		NewNode("leftUpperArm", 3),
		NewNode("rightUpperArm", 4),
		NewNode("body", 5),
	}
	nodes[0].Translation = [3]float32{0, 1, 0}
	nodes[0].Children = []int{1}
	nodes[1].Translation = [3]float32{0, 0.2, 0}
	nodes[1].Children = []int{2, 3, 4}
	nodes[2].Translation = [3]float32{0, 0.4, 0}
	nodes[3].Translation = [3]float32{0.2, 0.3, 0}
	nodes[4].Translation = [3]float32{-0.2, 0.3, 0}
	nodes[5].Mesh = 0

	var ibHips, ibSpine [16]float32
	common.Identity(ibHips[:])
	common.Identity(ibSpine[:])
	ibHips[13] = -1
	ibSpine[13] = -1.2

	mesh := &Mesh{
		Name: "body",
		Primitives: []Primitive{{
			Vertices: []Vertex{
				{Position: [3]float32{-0.5, 0.5, 0}, Normal: [3]float32{0, 0, 1}, Weights: [4]float32{1}},
				{Position: [3]float32{0.5, 0.5, 0}, Normal: [3]float32{0, 0, 1}, Weights: [4]float32{1}},
				{Position: [3]float32{0, 1.8, 0}, Normal: [3]float32{0, 0, 1}, Joints: [4]uint32{1}, Weights: [4]float32{1}},
			},
			Indices:  []uint32{0, 1, 2},
			Material: -1,
			Targets: []MorphTarget{{
				Positions: [][3]float32{{0, 0, 0}, {0, 0, 0}, {0, 0.1, 0}},
			}},
		}},
		TargetNames:    []string{"blink"},
		DefaultWeights: []float32{0},
	}

	em := NewExpressionManager([]*Mesh{mesh})
	em.Register(&Expression{Name: ExpressionBlink, Binds: []MorphBind{{Mesh: 0, Index: 0, Weight: 1}}})

	a := NewAvatar(
		WithName("test"),
		WithNodes(nodes),
		WithMeshes([]*Mesh{mesh}),
		WithSkins([]*Skin{{Joints: []int{0, 1}, InverseBind: [][16]float32{ibHips, ibSpine}}}),
		WithInstances([]MeshInstance{{Node: 5, Mesh: 0, Skin: 0}}),
		WithHumanBones(map[HumanBone]int{
			BoneHips:          0,
			BoneSpine:         1,
			BoneHead:          2,
			BoneLeftUpperArm:  3,
			BoneRightUpperArm: 4,
		}),
		WithExpressions(em),
	)
	return a
}

func TestAvatar_Bone_PresentAndAbsent(t *testing.T) {
	// --- Arrange ---
	a := newTestAvatar(t)

	// --- Act ---
	head, okHead := a.Bone(BoneHead)
	jaw, okJaw := a.Bone(BoneJaw)
	_, okInvalid := a.Bone(HumanBone(-3))

	// --- Assert ---
	require.True(t, okHead)
	assert.Equal(t, "head", head.Name)
	assert.False(t, okJaw)
	assert.Nil(t, jaw)
	assert.False(t, okInvalid)
	assert.Equal(t, []HumanBone{BoneHips, BoneSpine, BoneHead, BoneLeftUpperArm, BoneRightUpperArm}, a.HumanoidBones())
}

func TestAvatar_Bone_NilAvatar(t *testing.T) {
	var a *Avatar
	n, ok := a.Bone(BoneHips)
	assert.False(t, ok)
	assert.Nil(t, n)
}

func TestAvatar_RestPose(t *testing.T) {
	// --- Arrange ---
	a := newTestAvatar(t)

	// --- Act ---
	rest, ok := a.Rest(BoneHead)

	// --- Assert ---
	require.True(t, ok)
	assert.InDelta(t, 1.6, rest.WorldPosition[1], 1e-6)
	assert.InDelta(t, 1.0, a.HipsHeight(), 1e-6)
	assert.Equal(t, common.QuatIdentity, rest.LocalRotation)
}

func TestAvatar_ApplyArmBaseline_MatchesResetAndReapply(t *testing.T) {
	// --- Arrange ---
	a := newTestAvatar(t)
	angle := float32(math.Pi / 2.6)
	a.ApplyArmBaseline(angle)
	left, _ := a.Bone(BoneLeftUpperArm)
	right, _ := a.Bone(BoneRightUpperArm)
	wantLeft, wantRight := left.Rotation, right.Rotation

	// --- Act ---
	left.SetEuler([3]float32{0.3, 0.2, 0.1})
	right.RotateX(1.2)
	a.ResetHumanoidRotations()
	a.ApplyArmBaseline(a.ArmRestAngle())

	// --- Assert ---
	assert.Equal(t, wantLeft, left.Rotation)
	assert.Equal(t, wantRight, right.Rotation)
	assert.InDelta(t, float64(angle), float64(left.Euler()[2]), 1e-5)
	assert.InDelta(t, -float64(angle), float64(right.Euler()[2]), 1e-5)
	spine, _ := a.Bone(BoneSpine)
	assert.Equal(t, common.QuatIdentity, spine.Rotation)
}

func TestAvatar_SetCastShadow(t *testing.T) {
	a := newTestAvatar(t)
	a.SetCastShadow(true)
	assert.True(t, a.CastShadow())
	a.SetCastShadow(false)
	assert.False(t, a.CastShadow())
}

func TestAvatar_BoundingBox_SkinsVertices(t *testing.T) {
	// --- Arrange ---
	a := newTestAvatar(t)

	// --- Act ---
	box := a.BoundingBox()

	// --- Assert ---
	assert.InDelta(t, -0.5, box.Min[0], 1e-5)
	assert.InDelta(t, 0.5, box.Max[0], 1e-5)
	assert.InDelta(t, 0.5, box.Min[1], 1e-5)
	assert.InDelta(t, 1.8, box.Max[1], 1e-5)
}

func TestAvatar_BoundingBox_FollowsBonesAndMorphs(t *testing.T) {
	// --- Arrange ---
	a := newTestAvatar(t)
	spine, _ := a.Bone(BoneSpine)
	spine.Translation[1] += 0.5
	a.Expressions().SetValue(ExpressionBlink, 1)
	a.Expressions().Update()

	// --- Act ---
	box := a.BoundingBox()

	// --- Assert ---
	assert.InDelta(t, 2.4, box.Max[1], 1e-5)
}

func TestAvatar_BoundingBox_AppliesRootTransform(t *testing.T) {
	// --- Arrange ---
	a := newTestAvatar(t)
	a.Root.Position = [3]float32{1, 2, 3}

	// --- Act ---
	box := a.BoundingBox()

	// --- Assert ---
	assert.InDelta(t, 0.5, box.Min[0], 1e-5)
	assert.InDelta(t, 2.5, box.Min[1], 1e-5)
	assert.InDelta(t, 3, box.Center()[2], 1e-5)
}

func TestAvatar_Update_RunsPhysicsAndExpressions(t *testing.T) {
	// --- Arrange ---
	a := newTestAvatar(t)
	solver := &countingSolver{}
	a.SetPhysics(solver)
	a.Expressions().SetValue(ExpressionBlink, 0.5)

	// --- Act ---
	a.Update(0.016)

	// --- Assert ---
	assert.Equal(t, 1, solver.updates)
	assert.InDelta(t, 0.016, solver.lastDt, 1e-6)
	assert.InDelta(t, 0.5, a.Meshes()[0].Weights[0], 1e-6)
}

type countingSolver struct {
	updates int
	resets  int
	lastDt  float32
}

func (s *countingSolver) Update(dt float32) {
	s.updates++
	s.lastDt = dt
}

func (s *countingSolver) Reset() { s.resets++ }
