package model

// AvatarBuilderOption is a functional option for configuring an Avatar via NewAvatar.
type AvatarBuilderOption func(*Avatar)

// WithName is an option builder that sets the asset name of the Avatar.
//
// Parameters:
//   - name: the avatar identifier
//
// Returns:
//   - AvatarBuilderOption: a function that applies the name option to an avatar
func WithName(name string) AvatarBuilderOption {
	return func(a *Avatar) {
		a.Name = name
	}
}

// WithNodes is an option builder that sets the node graph of the Avatar.
// Parent links and scene roots are derived from each node's Children.
//
// Parameters:
//   - nodes: the nodes, indexed by position
//
// Returns:
//   - AvatarBuilderOption: a function that applies the nodes option to an avatar
func WithNodes(nodes []*Node) AvatarBuilderOption {
	return func(a *Avatar) {
		a.nodes = nodes
	}
}

// WithSceneNodes is an option builder that sets the top-level node indices of the scene.
// When omitted, every parentless node is a scene root.
//
// Parameters:
//   - roots: the scene root node indices
//
// Returns:
//   - AvatarBuilderOption: a function that applies the scene nodes option to an avatar
func WithSceneNodes(roots []int) AvatarBuilderOption {
	return func(a *Avatar) {
		a.sceneNodes = roots
	}
}

// WithMeshes is an option builder that sets the meshes of the Avatar.
//
// Parameters:
//   - meshes: the meshes
//
// Returns:
//   - AvatarBuilderOption: a function that applies the meshes option to an avatar
func WithMeshes(meshes []*Mesh) AvatarBuilderOption {
	return func(a *Avatar) {
		a.meshes = meshes
	}
}

// WithSkins is an option builder that sets the skins of the Avatar.
//
// Parameters:
//   - skins: the skins
//
// Returns:
//   - AvatarBuilderOption: a function that applies the skins option to an avatar
func WithSkins(skins []*Skin) AvatarBuilderOption {
	return func(a *Avatar) {
		a.skins = skins
	}
}

// WithInstances is an option builder that sets the mesh placements of the Avatar.
//
// Parameters:
//   - instances: the mesh instances
//
// Returns:
//   - AvatarBuilderOption: a function that applies the instances option to an avatar
func WithInstances(instances []MeshInstance) AvatarBuilderOption {
	return func(a *Avatar) {
		a.instances = instances
	}
}

// WithMaterials is an option builder that sets the materials of the Avatar.
//
// Parameters:
//   - materials: the materials
//
// Returns:
//   - AvatarBuilderOption: a function that applies the materials option to an avatar
func WithMaterials(materials []*Material) AvatarBuilderOption {
	return func(a *Avatar) {
		a.materials = materials
	}
}

// WithHumanBones is an option builder that sets the humanoid bone table of the Avatar.
//
// Parameters:
//   - bones: humanoid bone to node index
//
// Returns:
//   - AvatarBuilderOption: a function that applies the bone table option to an avatar
func WithHumanBones(bones map[HumanBone]int) AvatarBuilderOption {
	return func(a *Avatar) {
		for b, idx := range bones {
			if b.Valid() {
				a.bones[b] = idx
			}
		}
	}
}

// WithExpressions is an option builder that sets the expression manager of the Avatar.
//
// Parameters:
//   - m: the expression manager
//
// Returns:
//   - AvatarBuilderOption: a function that applies the expressions option to an avatar
func WithExpressions(m *ExpressionManager) AvatarBuilderOption {
	return func(a *Avatar) {
		a.expressions = m
	}
}

// WithMetaVersion is an option builder that sets the VRM meta version ("0" or "1").
//
// Parameters:
//   - version: the meta version
//
// Returns:
//   - AvatarBuilderOption: a function that applies the meta version option to an avatar
func WithMetaVersion(version string) AvatarBuilderOption {
	return func(a *Avatar) {
		a.metaVersion = version
	}
}

// NewAvatar creates an Avatar, links the node graph and records the rest pose of every humanoid bone.
//
// Parameters:
//   - options: a variadic list of AvatarBuilderOption functions to configure the Avatar
//
// Returns:
//   - *Avatar: the new avatar
func NewAvatar(options ...AvatarBuilderOption) *Avatar {
	a := &Avatar{
		Root:        SceneRoot{Scale: [3]float32{1, 1, 1}},
		metaVersion: "1",
	}
	for b := range a.bones {
		a.bones[b] = -1
	}
	for _, opt := range options {
		opt(a)
	}

	for i, n := range a.nodes {
		n.Index = i
		n.Parent = -1
	}
	for i, n := range a.nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(a.nodes) {
				a.nodes[c].Parent = i
			}
		}
	}
	if len(a.sceneNodes) == 0 {
		for i, n := range a.nodes {
			if n.Parent < 0 {
				a.sceneNodes = append(a.sceneNodes, i)
			}
		}
	}
	for i := range a.meshes {
		m := a.meshes[i]
		if len(m.Weights) != len(m.DefaultWeights) {
			m.Weights = append([]float32(nil), m.DefaultWeights...)
		}
	}

	a.captureRest()
	return a
}
