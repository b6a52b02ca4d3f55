package model

import (
	"testing"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHairAvatar builds head -> hair -> hairTip where the hair hangs along +Z.
func newHairAvatar() *Avatar {
	nodes := []*Node{NewNode("head", 0), NewNode("hair", 1), NewNode("hairTip", 2)}
	nodes[0].Translation = [3]float32{0, 1.5, 0}
	nodes[0].Children = []int{1}
	nodes[1].Translation = [3]float32{0, 0.1, 0}
	nodes[1].Children = []int{2}
	nodes[2].Translation = [3]float32{0, 0, 0.2}
	return NewAvatar(WithNodes(nodes), WithHumanBones(map[HumanBone]int{BoneHead: 0}))
}

func TestSpringBoneSolver_GravityPullsTailDown(t *testing.T) {
	// --- Arrange ---
	a := newHairAvatar()
	s := NewSpringBoneSolver(a, []SpringJointSettings{{
		Node:         1,
		Child:        2,
		Stiffness:    0,
		GravityPower: 1,
		GravityDir:   [3]float32{0, -1, 0},
		DragForce:    0.4,
	}}, nil, nil)
	require.Equal(t, 1, s.JointCount())
	tipBefore := a.Nodes()[2].WorldPosition()

	// --- Act ---
	for i := 0; i < 30; i++ {
		s.Update(1.0 / 60)
	}
	a.UpdateWorld()

	// --- Assert ---
	tipAfter := a.Nodes()[2].WorldPosition()
	assert.Less(t, tipAfter[1], tipBefore[1])
	hair := a.Nodes()[1].WorldPosition()
	assert.InDelta(t, 0.2, common.Vec3Length(common.Vec3Sub(tipAfter, hair)), 1e-4)
}

func TestSpringBoneSolver_ResetRestoresRotation(t *testing.T) {
	a := newHairAvatar()
	s := NewSpringBoneSolver(a, []SpringJointSettings{{
		Node: 1, Child: 2, GravityPower: 1, GravityDir: [3]float32{0, -1, 0}, DragForce: 0.4,
	}}, nil, nil)
	for i := 0; i < 10; i++ {
		s.Update(1.0 / 60)
	}
	require.NotEqual(t, common.QuatIdentity, a.Nodes()[1].Rotation)

	s.Reset()

	assert.Equal(t, common.QuatIdentity, a.Nodes()[1].Rotation)
}

func TestSpringBoneSolver_SphereColliderPushesTailOut(t *testing.T) {
	// --- Arrange ---
	a := newHairAvatar()
	colliders := []SpringCollider{{Node: 0, Offset: [3]float32{0, 0.05, 0.2}, Radius: 0.06}}
	s := NewSpringBoneSolver(a, []SpringJointSettings{{
		Node: 1, Child: 2, GravityPower: 2, GravityDir: [3]float32{0, -1, 0}, DragForce: 0.4, ColliderGroups: []int{0},
	}}, colliders, []SpringColliderGroup{{Colliders: []int{0}}})

	// --- Act ---
	s.Update(1.0 / 60)
	a.UpdateWorld()

	// --- Assert ---
	center := common.TransformPoint(a.Nodes()[0].World(), colliders[0].Offset)
	tip := a.Nodes()[2].WorldPosition()
	assert.Greater(t, tip[1], float32(1.6))
	assert.GreaterOrEqual(t, common.Vec3Length(common.Vec3Sub(tip, center)), float32(0.055))
}

func TestSpringBoneSolver_IgnoresNonPositiveDt(t *testing.T) {
	a := newHairAvatar()
	s := NewSpringBoneSolver(a, []SpringJointSettings{{Node: 1, Child: 2, GravityPower: 1, GravityDir: [3]float32{0, -1, 0}}}, nil, nil)

	s.Update(0)
	s.Update(-1)

	assert.Equal(t, common.QuatIdentity, a.Nodes()[1].Rotation)
}
