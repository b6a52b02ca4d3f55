package model

import (
	"github.com/Carmen-Shannon/deskvrm/common"
)

// Node is a mutable transform in the avatar's node graph.
// Rotation is a unit quaternion in (x, y, z, w) order.
type Node struct {
	// Name is the glTF node name.
	Name string

	// Index is the node's position in the avatar node list.
	Index int

	// Parent is the parent node index, or -1 for scene roots.
	Parent int

	// Children are the indices of the child nodes.
	Children []int

	Translation [3]float32
	Rotation    [4]float32
	Scale       [3]float32

	// Mesh is the index of the mesh drawn at this node, or -1.
	Mesh int

	// CastShadow reports whether the node's mesh casts shadows.
	CastShadow bool

	world [16]float32
}

// NewNode creates a node with an identity transform and no parent or mesh.
//
// Parameters:
//   - name: the node name
//   - index: the node's index in the avatar node list
//
// Returns:
//   - *Node: the new node
func NewNode(name string, index int) *Node {
	n := &Node{
		Name:     name,
		Index:    index,
		Parent:   -1,
		Rotation: common.QuatIdentity,
		Scale:    [3]float32{1, 1, 1},
		Mesh:     -1,
	}
	common.Identity(n.world[:])
	return n
}

// Euler returns the rotation as intrinsic XYZ Euler angles in radians.
func (n *Node) Euler() [3]float32 {
	return common.QuatToEuler(n.Rotation)
}

// SetEuler replaces the rotation with intrinsic XYZ Euler angles in radians.
func (n *Node) SetEuler(e [3]float32) {
	n.Rotation = common.QuatFromEuler(e)
}

// RotateZ rotates the node about its local Z axis.
//
// Parameters:
//   - angle: rotation in radians
func (n *Node) RotateZ(angle float32) {
	n.rotateLocal([3]float32{0, 0, 1}, angle)
}

// RotateX rotates the node about its local X axis.
//
// Parameters:
//   - angle: rotation in radians
func (n *Node) RotateX(angle float32) {
	n.rotateLocal([3]float32{1, 0, 0}, angle)
}

func (n *Node) rotateLocal(axis [3]float32, angle float32) {
	n.Rotation = common.QuatMul(n.Rotation, common.QuatFromAxisAngle(axis, angle))
}

// LocalMatrix writes the node's local TRS matrix into out.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
func (n *Node) LocalMatrix(out []float32) {
	common.ComposeTRS(out, n.Translation, n.Rotation, n.Scale)
}

// World returns the node's last computed model-space matrix. The slice aliases the node's storage.
func (n *Node) World() []float32 {
	return n.world[:]
}

// WorldPosition returns the translation part of the node's model-space matrix.
func (n *Node) WorldPosition() [3]float32 {
	return [3]float32{n.world[12], n.world[13], n.world[14]}
}

// SceneRoot is the transform applied to the whole avatar. Rotation is in XYZ Euler radians.
type SceneRoot struct {
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// Matrix writes the root transform into out.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
func (r *SceneRoot) Matrix(out []float32) {
	s := r.Scale
	if s == ([3]float32{}) {
		s = [3]float32{1, 1, 1}
	}
	common.BuildModelMatrix(out,
		r.Position[0], r.Position[1], r.Position[2],
		r.Rotation[0], r.Rotation[1], r.Rotation[2],
		s[0], s[1], s[2])
}
