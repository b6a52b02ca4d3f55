package model

import (
	"github.com/Carmen-Shannon/deskvrm/common"
)

// SpringJointSettings configures one simulated joint of a spring chain.
type SpringJointSettings struct {
	// Node is the simulated bone.
	Node int

	// Child is the node whose rest position defines the bone tail, or -1 to extend the bone by a fixed length.
	Child int

	Stiffness    float32
	GravityPower float32
	GravityDir   [3]float32
	DragForce    float32
	HitRadius    float32

	// ColliderGroups index the solver's collider groups this joint collides with.
	ColliderGroups []int
}

// SpringCollider is a sphere, or a capsule when Tail differs from Offset, attached to a node.
type SpringCollider struct {
	Node    int
	Offset  [3]float32
	Tail    [3]float32
	Radius  float32
	Capsule bool
}

// SpringColliderGroup is a named set of collider indices.
type SpringColliderGroup struct {
	Colliders []int
}

type springJoint struct {
	settings SpringJointSettings

	initialLocalRotation    [4]float32
	initialLocalTranslation [3]float32
	initialLocalScale       [3]float32
	initialChildPosition    [3]float32
	boneAxis                [3]float32
	length                  float32

	currentTail [3]float32
	prevTail    [3]float32
}

// SpringBoneSolver is a Verlet-integrated secondary-bone solver operating in model space.
// Gravity is given in world space and rotated into model space through the avatar's scene root.
type SpringBoneSolver struct {
	avatar    *Avatar
	joints    []*springJoint
	colliders []SpringCollider
	groups    []SpringColliderGroup
}

var _ PhysicsSolver = &SpringBoneSolver{}

// fallbackTailLength extends childless joints along their own offset.
const fallbackTailLength = 0.07

// NewSpringBoneSolver builds a solver for the given joints, capturing their rest state from the avatar's current pose.
// Joints must be listed from chain root to tip.
//
// Parameters:
//   - a: the avatar whose nodes are simulated
//   - joints: the joint settings
//   - colliders: the colliders referenced by groups
//   - groups: the collider groups referenced by joints
//
// Returns:
//   - *SpringBoneSolver: the solver
func NewSpringBoneSolver(a *Avatar, joints []SpringJointSettings, colliders []SpringCollider, groups []SpringColliderGroup) *SpringBoneSolver {
	s := &SpringBoneSolver{
		avatar:    a,
		colliders: colliders,
		groups:    groups,
	}
	a.UpdateWorld()

	for _, js := range joints {
		if js.Node < 0 || js.Node >= len(a.nodes) {
			continue
		}
		n := a.nodes[js.Node]
		j := &springJoint{
			settings:                js,
			initialLocalRotation:    n.Rotation,
			initialLocalTranslation: n.Translation,
			initialLocalScale:       n.Scale,
		}
		if js.Child >= 0 && js.Child < len(a.nodes) {
			j.initialChildPosition = a.nodes[js.Child].Translation
		} else {
			dir := common.Vec3Normalize(n.Translation)
			if dir == ([3]float32{}) {
				dir = [3]float32{0, 1, 0}
			}
			j.initialChildPosition = common.Vec3Scale(dir, fallbackTailLength)
		}
		j.boneAxis = common.Vec3Normalize(j.initialChildPosition)
		if j.boneAxis == ([3]float32{}) {
			j.boneAxis = [3]float32{0, 1, 0}
		}
		tail := common.TransformPoint(n.world[:], j.initialChildPosition)
		j.length = common.Vec3Length(common.Vec3Sub(tail, n.WorldPosition()))
		j.currentTail = tail
		j.prevTail = tail
		s.joints = append(s.joints, j)
	}
	return s
}

// JointCount returns the number of simulated joints.
func (s *SpringBoneSolver) JointCount() int {
	return len(s.joints)
}

// Reset restores each joint's rest rotation and places its tail at rest.
func (s *SpringBoneSolver) Reset() {
	a := s.avatar
	for _, j := range s.joints {
		a.nodes[j.settings.Node].Rotation = j.initialLocalRotation
	}
	a.UpdateWorld()
	for _, j := range s.joints {
		n := a.nodes[j.settings.Node]
		tail := common.TransformPoint(n.world[:], j.initialChildPosition)
		j.currentTail = tail
		j.prevTail = tail
	}
}

// Update advances every joint by dt seconds. Non-positive dt is ignored.
//
// Parameters:
//   - dt: elapsed seconds
func (s *SpringBoneSolver) Update(dt float32) {
	if dt <= 0 || len(s.joints) == 0 {
		return
	}
	a := s.avatar

	var root [16]float32
	a.RootMatrix(root[:])
	rootRot := common.QuatWorldRotation(root[:])
	toModel := common.QuatInvert(rootRot)

	for _, j := range s.joints {
		s.updateJoint(j, dt, toModel)
	}
}

func (s *SpringBoneSolver) updateJoint(j *springJoint, dt float32, toModel [4]float32) {
	a := s.avatar
	n := a.nodes[j.settings.Node]

	// Rest frame of the joint under the current parent pose.
	var parentWorld [16]float32
	common.Identity(parentWorld[:])
	if n.Parent >= 0 {
		copy(parentWorld[:], a.nodes[n.Parent].world[:])
	}
	var initialLocal, initialWorld [16]float32
	common.ComposeTRS(initialLocal[:], j.initialLocalTranslation, j.initialLocalRotation, j.initialLocalScale)
	common.Mul4(initialWorld[:], parentWorld[:], initialLocal[:])

	head := common.TransformPoint(initialWorld[:], [3]float32{})
	restTail := common.TransformPoint(initialWorld[:], j.boneAxis)

	st := j.settings
	inertia := common.Vec3Scale(common.Vec3Sub(j.currentTail, j.prevTail), 1-st.DragForce)
	stiffness := common.Vec3Scale(common.Vec3Normalize(common.Vec3Sub(restTail, head)), dt*st.Stiffness)
	gravity := common.Vec3Scale(common.QuatRotateVec3(toModel, st.GravityDir), dt*st.GravityPower)

	next := common.Vec3Add(j.currentTail, common.Vec3Add(inertia, common.Vec3Add(stiffness, gravity)))
	next = s.constrainLength(head, next, j.length)
	next = s.collide(j, head, next)

	j.prevTail = j.currentTail
	j.currentTail = next

	var inv [16]float32
	if !common.Invert4(inv[:], initialWorld[:]) {
		return
	}
	to := common.Vec3Normalize(common.TransformPoint(inv[:], next))
	if to == ([3]float32{}) {
		return
	}
	n.Rotation = common.QuatNormalize(common.QuatMul(j.initialLocalRotation, common.QuatFromUnitVectors(j.boneAxis, to)))
	a.UpdateNodeWorld(n.Index)
}

func (s *SpringBoneSolver) constrainLength(head, tail [3]float32, length float32) [3]float32 {
	dir := common.Vec3Normalize(common.Vec3Sub(tail, head))
	if dir == ([3]float32{}) {
		return tail
	}
	return common.Vec3Add(head, common.Vec3Scale(dir, length))
}

func (s *SpringBoneSolver) collide(j *springJoint, head, tail [3]float32) [3]float32 {
	a := s.avatar
	for _, gi := range j.settings.ColliderGroups {
		if gi < 0 || gi >= len(s.groups) {
			continue
		}
		for _, ci := range s.groups[gi].Colliders {
			if ci < 0 || ci >= len(s.colliders) {
				continue
			}
			c := s.colliders[ci]
			if c.Node < 0 || c.Node >= len(a.nodes) {
				continue
			}
			w := a.nodes[c.Node].world[:]
			center := common.TransformPoint(w, c.Offset)
			if c.Capsule {
				center = closestOnSegment(center, common.TransformPoint(w, c.Tail), tail)
			}
			delta := common.Vec3Sub(tail, center)
			dist := common.Vec3Length(delta)
			pen := dist - (c.Radius + j.settings.HitRadius)
			if pen >= 0 || dist == 0 {
				continue
			}
			tail = common.Vec3Add(tail, common.Vec3Scale(delta, -pen/dist))
			tail = s.constrainLength(head, tail, j.length)
		}
	}
	return tail
}

func closestOnSegment(a, b, p [3]float32) [3]float32 {
	ab := common.Vec3Sub(b, a)
	den := common.Vec3Dot(ab, ab)
	if den == 0 {
		return a
	}
	t := common.Clamp(common.Vec3Dot(common.Vec3Sub(p, a), ab)/den, 0, 1)
	return common.Vec3Add(a, common.Vec3Scale(ab, t))
}
