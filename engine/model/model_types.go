package model

import "image"

// --- Mesh Types ---

// Vertex is a single skinned vertex in bind space.
type Vertex struct {
	// Position is the bind-pose position.
	Position [3]float32

	// Normal is the bind-pose normal.
	Normal [3]float32

	// UV is the first texture coordinate set.
	UV [2]float32

	// Joints are indices into the owning skin's joint list.
	Joints [4]uint32

	// Weights are the skinning weights for Joints. They sum to 1 for skinned vertices.
	Weights [4]float32
}

// MorphTarget holds per-vertex displacements for one blend shape.
type MorphTarget struct {
	// Positions are position deltas, one per vertex. May be nil.
	Positions [][3]float32

	// Normals are normal deltas, one per vertex. May be nil.
	Normals [][3]float32
}

// Primitive is one drawable triangle list with a single material.
type Primitive struct {
	Vertices []Vertex
	Indices  []uint32

	// Material indexes Avatar.Materials, or -1 for the default material.
	Material int

	// Targets are the morph targets of this primitive, parallel to Mesh.Weights.
	Targets []MorphTarget
}

// Mesh is a set of primitives sharing morph target weights.
type Mesh struct {
	Name       string
	Primitives []Primitive

	// TargetNames are the morph target names, when the asset provides them.
	TargetNames []string

	// DefaultWeights are the asset's rest morph weights.
	DefaultWeights []float32

	// Weights are the current morph weights written by the expression manager.
	Weights []float32
}

// Skin binds a mesh to a set of joint nodes.
type Skin struct {
	// Joints are node indices.
	Joints []int

	// InverseBind are the inverse bind matrices, parallel to Joints.
	InverseBind [][16]float32
}

// MeshInstance places a mesh in the node graph.
type MeshInstance struct {
	// Node is the index of the node that carries the mesh.
	Node int

	// Mesh indexes Avatar meshes.
	Mesh int

	// Skin indexes Avatar skins, or -1 for a rigid mesh.
	Skin int
}

// --- Material Types ---

// AlphaMode is the glTF alpha rendering mode.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// Material is the render-ready subset of a glTF or MToon material.
type Material struct {
	Name string

	// BaseColor is the linear RGBA color factor.
	BaseColor [4]float32

	// Texture is the decoded base color texture, or nil.
	Texture *image.NRGBA

	// ShadeColor is the MToon shade color used on the unlit side, in linear RGB.
	ShadeColor [3]float32

	// Emissive is the linear RGB emissive factor.
	Emissive [3]float32

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool

	// Unlit is set for KHR_materials_unlit materials.
	Unlit bool
}

// --- Pose Types ---

// RestPose records a humanoid bone's transforms at load time, before the baseline pose is applied.
// All world values are in model space (the scene root excluded).
type RestPose struct {
	LocalRotation    [4]float32
	LocalTranslation [3]float32

	WorldRotation       [4]float32
	ParentWorldRotation [4]float32
	WorldPosition       [3]float32

	// ParentWorldInverse maps model space into the bone's parent space.
	ParentWorldInverse [16]float32
}

// SkinnedPrimitive holds the model-space positions and normals of one primitive after morphing and skinning.
type SkinnedPrimitive struct {
	// Instance indexes Avatar.Instances.
	Instance int

	// Primitive indexes the mesh's primitive list.
	Primitive int

	Positions [][3]float32
	Normals   [][3]float32
}
