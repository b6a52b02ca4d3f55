package model

import (
	"github.com/Carmen-Shannon/deskvrm/common"
)

// PhysicsSolver advances secondary-bone motion (hair, cloth) by writing local bone rotations.
type PhysicsSolver interface {
	// Update advances the simulation by dt seconds.
	Update(dt float32)

	// Reset returns every simulated bone to its rest state.
	Reset()
}

// Avatar is a loaded humanoid model: a node graph with a humanoid bone table, skinned meshes,
// optional expression channels and an optional secondary-bone solver.
// An Avatar is not safe for concurrent use; it is owned by the frame thread.
type Avatar struct {
	// Name is the asset name.
	Name string

	// Root is the transform applied to the whole model.
	Root SceneRoot

	nodes      []*Node
	sceneNodes []int
	meshes     []*Mesh
	skins      []*Skin
	instances  []MeshInstance
	materials  []*Material

	bones [HumanBoneCount]int
	rest  [HumanBoneCount]RestPose

	expressions *ExpressionManager
	physics     PhysicsSolver

	metaVersion  string
	armRestAngle float32

	skinned []SkinnedPrimitive
	joints  [][16]float32
}

// Bone resolves a humanoid bone to its mutable node.
//
// Parameters:
//   - b: the bone identifier
//
// Returns:
//   - *Node: the node, or nil if the rig lacks the bone
//   - bool: true if the bone exists
func (a *Avatar) Bone(b HumanBone) (*Node, bool) {
	if a == nil || !b.Valid() {
		return nil, false
	}
	idx := a.bones[b]
	if idx < 0 || idx >= len(a.nodes) {
		return nil, false
	}
	return a.nodes[idx], true
}

// HumanoidBones lists the bones present on the rig in enumeration order.
func (a *Avatar) HumanoidBones() []HumanBone {
	var out []HumanBone
	for b := HumanBone(0); b < HumanBoneCount; b++ {
		if a.bones[b] >= 0 {
			out = append(out, b)
		}
	}
	return out
}

// Rest returns the load-time rest transforms of a humanoid bone.
//
// Parameters:
//   - b: the bone identifier
//
// Returns:
//   - RestPose: the rest record
//   - bool: false if the rig lacks the bone
func (a *Avatar) Rest(b HumanBone) (RestPose, bool) {
	if _, ok := a.Bone(b); !ok {
		return RestPose{}, false
	}
	return a.rest[b], true
}

// HipsHeight returns the model-space height of the hips at rest.
func (a *Avatar) HipsHeight() float32 {
	if _, ok := a.Bone(BoneHips); !ok {
		return 0
	}
	return a.rest[BoneHips].WorldPosition[1]
}

// Nodes returns the node list. The slice is owned by the avatar.
func (a *Avatar) Nodes() []*Node { return a.nodes }

// Meshes returns the mesh list. The slice is owned by the avatar.
func (a *Avatar) Meshes() []*Mesh { return a.meshes }

// Instances returns the mesh placements in node order.
func (a *Avatar) Instances() []MeshInstance { return a.instances }

// Materials returns the material list. The slice is owned by the avatar.
func (a *Avatar) Materials() []*Material { return a.materials }

// Expressions returns the expression manager, or nil if the avatar has no expressions.
func (a *Avatar) Expressions() *ExpressionManager { return a.expressions }

// Physics returns the secondary-bone solver, or nil if the avatar has none.
func (a *Avatar) Physics() PhysicsSolver {
	if a.physics == nil {
		return nil
	}
	return a.physics
}

// SetPhysics attaches a secondary-bone solver. A nil solver detaches it.
func (a *Avatar) SetPhysics(s PhysicsSolver) {
	a.physics = s
}

// MetaVersion returns "0" for VRM 0.x avatars and "1" for VRM 1.0 avatars.
func (a *Avatar) MetaVersion() string { return a.metaVersion }

// ArmRestAngle returns the baseline upper-arm roll applied at load time.
func (a *Avatar) ArmRestAngle() float32 { return a.armRestAngle }

// CastShadow reports whether any mesh node casts shadows.
func (a *Avatar) CastShadow() bool {
	for _, inst := range a.instances {
		if a.nodes[inst.Node].CastShadow {
			return true
		}
	}
	return false
}

// SetCastShadow sets shadow casting on every node.
func (a *Avatar) SetCastShadow(cast bool) {
	for _, n := range a.nodes {
		n.CastShadow = cast
	}
}

// ApplyArmBaseline rolls the upper arms about their local Z axes, left by +angle and right by -angle,
// so the avatar does not rest in a T-pose. The angle is remembered for ArmRestAngle.
//
// Parameters:
//   - angle: the roll in radians
func (a *Avatar) ApplyArmBaseline(angle float32) {
	a.armRestAngle = angle
	if n, ok := a.Bone(BoneLeftUpperArm); ok {
		n.RotateZ(angle)
	}
	if n, ok := a.Bone(BoneRightUpperArm); ok {
		n.RotateZ(-angle)
	}
}

// ResetHumanoidRotations sets every humanoid bone's local rotation to identity.
func (a *Avatar) ResetHumanoidRotations() {
	for b := HumanBone(0); b < HumanBoneCount; b++ {
		if n, ok := a.Bone(b); ok {
			n.Rotation = common.QuatIdentity
		}
	}
}

// RootMatrix writes the scene root transform into out.
func (a *Avatar) RootMatrix(out []float32) {
	a.Root.Matrix(out)
}

// UpdateWorld recomputes the model-space matrix of every node from the local transforms.
func (a *Avatar) UpdateWorld() {
	var id [16]float32
	common.Identity(id[:])
	for _, root := range a.sceneNodes {
		a.updateSubtree(root, id[:])
	}
}

// UpdateNodeWorld recomputes the model-space matrix of a node and its descendants,
// assuming its parent's matrix is current.
//
// Parameters:
//   - idx: the node index
func (a *Avatar) UpdateNodeWorld(idx int) {
	if idx < 0 || idx >= len(a.nodes) {
		return
	}
	parent := a.nodes[idx].Parent
	if parent < 0 {
		var id [16]float32
		common.Identity(id[:])
		a.updateSubtree(idx, id[:])
		return
	}
	a.updateSubtree(idx, a.nodes[parent].world[:])
}

func (a *Avatar) updateSubtree(idx int, parentWorld []float32) {
	n := a.nodes[idx]
	var local [16]float32
	n.LocalMatrix(local[:])
	common.Mul4(n.world[:], parentWorld, local[:])
	for _, c := range n.Children {
		a.updateSubtree(c, n.world[:])
	}
}

// Update applies the full per-frame pose update: world matrices, secondary-bone physics and expressions.
//
// Parameters:
//   - dt: elapsed seconds since the previous update
func (a *Avatar) Update(dt float32) {
	a.UpdateWorld()
	if a.physics != nil {
		a.physics.Update(dt)
	}
	if a.expressions != nil {
		a.expressions.Update()
	}
}

// Skin morphs and skins every mesh vertex into model space using the current node matrices.
// Call UpdateWorld first when bone transforms changed.
//
// Returns:
//   - []SkinnedPrimitive: one entry per drawn primitive; the slices are reused across calls
func (a *Avatar) Skin() []SkinnedPrimitive {
	k := 0
	for ii, inst := range a.instances {
		mesh := a.meshes[inst.Mesh]
		var skin *Skin
		if inst.Skin >= 0 && inst.Skin < len(a.skins) {
			skin = a.skins[inst.Skin]
			a.prepareJoints(skin)
		}
		rigid := a.nodes[inst.Node].world[:]

		for pi := range mesh.Primitives {
			prim := &mesh.Primitives[pi]
			if k >= len(a.skinned) {
				a.skinned = append(a.skinned, SkinnedPrimitive{})
			}
			out := &a.skinned[k]
			k++
			out.Instance, out.Primitive = ii, pi
			if cap(out.Positions) < len(prim.Vertices) {
				out.Positions = make([][3]float32, len(prim.Vertices))
				out.Normals = make([][3]float32, len(prim.Vertices))
			}
			out.Positions = out.Positions[:len(prim.Vertices)]
			out.Normals = out.Normals[:len(prim.Vertices)]

			for vi := range prim.Vertices {
				p, nrm := morphVertex(prim, mesh.Weights, vi)
				if skin == nil {
					out.Positions[vi] = common.TransformPoint(rigid, p)
					out.Normals[vi] = common.Vec3Normalize(common.TransformDirection(rigid, nrm))
					continue
				}
				v := &prim.Vertices[vi]
				var sp, sn [3]float32
				for j := 0; j < 4; j++ {
					w := v.Weights[j]
					if w == 0 || int(v.Joints[j]) >= len(a.joints) {
						continue
					}
					m := a.joints[v.Joints[j]][:]
					sp = common.Vec3Add(sp, common.Vec3Scale(common.TransformPoint(m, p), w))
					sn = common.Vec3Add(sn, common.Vec3Scale(common.TransformDirection(m, nrm), w))
				}
				out.Positions[vi] = sp
				out.Normals[vi] = common.Vec3Normalize(sn)
			}
		}
	}
	a.skinned = a.skinned[:k]
	return a.skinned
}

func (a *Avatar) prepareJoints(skin *Skin) {
	if cap(a.joints) < len(skin.Joints) {
		a.joints = make([][16]float32, len(skin.Joints))
	}
	a.joints = a.joints[:len(skin.Joints)]
	for j, nodeIdx := range skin.Joints {
		if nodeIdx < 0 || nodeIdx >= len(a.nodes) || j >= len(skin.InverseBind) {
			common.Identity(a.joints[j][:])
			continue
		}
		common.Mul4(a.joints[j][:], a.nodes[nodeIdx].world[:], skin.InverseBind[j][:])
	}
}

func morphVertex(prim *Primitive, weights []float32, vi int) ([3]float32, [3]float32) {
	v := &prim.Vertices[vi]
	p, n := v.Position, v.Normal
	for ti := range prim.Targets {
		if ti >= len(weights) || weights[ti] == 0 {
			continue
		}
		w := weights[ti]
		t := &prim.Targets[ti]
		if vi < len(t.Positions) {
			p = common.Vec3Add(p, common.Vec3Scale(t.Positions[vi], w))
		}
		if vi < len(t.Normals) {
			n = common.Vec3Add(n, common.Vec3Scale(t.Normals[vi], w))
		}
	}
	return p, n
}

// Skinned returns the primitives produced by the last Skin call.
func (a *Avatar) Skinned() []SkinnedPrimitive { return a.skinned }

// BoundingBox updates world matrices, skins every vertex and returns the world-space box
// under the current scene root transform.
//
// Returns:
//   - common.Box3: the box; empty if the avatar has no geometry
func (a *Avatar) BoundingBox() common.Box3 {
	a.UpdateWorld()
	prims := a.Skin()

	var root [16]float32
	a.RootMatrix(root[:])

	box := common.EmptyBox3()
	for i := range prims {
		for _, p := range prims[i].Positions {
			box.ExpandByPoint(common.TransformPoint(root[:], p))
		}
	}
	return box
}

// captureRest records the rest transforms of every humanoid bone from the current local transforms.
func (a *Avatar) captureRest() {
	a.UpdateWorld()
	for b := HumanBone(0); b < HumanBoneCount; b++ {
		n, ok := a.Bone(b)
		if !ok {
			continue
		}
		r := RestPose{
			LocalRotation:    n.Rotation,
			LocalTranslation: n.Translation,
			WorldRotation:    common.QuatWorldRotation(n.world[:]),
			WorldPosition:    n.WorldPosition(),
		}
		common.Identity(r.ParentWorldInverse[:])
		r.ParentWorldRotation = common.QuatIdentity
		if n.Parent >= 0 {
			pw := a.nodes[n.Parent].world[:]
			r.ParentWorldRotation = common.QuatWorldRotation(pw)
			common.Invert4(r.ParentWorldInverse[:], pw)
		}
		a.rest[b] = r
	}
}
