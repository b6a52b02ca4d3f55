package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser
}

// gltfSkeletonExtractor defines the interface for extracting the node graph and skins from a parsed glTF document.
type gltfSkeletonExtractor interface {
	// ExtractNodes converts every glTF node into a model.Node with decomposed local TRS.
	// The hierarchy is validated: each node has at most one parent and there are no cycles.
	//
	// Returns:
	//   - []*model.Node: the nodes, indexed like the document's nodes
	//   - error: error if the hierarchy is malformed
	ExtractNodes() ([]*model.Node, error)

	// ExtractAllSkins extracts every skin with its inverse bind matrices.
	//
	// Returns:
	//   - []*model.Skin: all skins
	//   - error: error if extraction fails
	ExtractAllSkins() ([]*model.Skin, error)

	// ExtractInstances lists every node that draws a mesh, with the skin it uses.
	//
	// Returns:
	//   - []model.MeshInstance: the mesh placements
	ExtractInstances() []model.MeshInstance

	// SceneNodes returns the root nodes of the default scene, or nil when the document has no scenes.
	SceneNodes() []int
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser}
}

func (e *gltfSkeletonExtractorImpl) ExtractNodes() ([]*model.Node, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	nodes := make([]*model.Node, len(doc.Nodes))
	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}

	for i := range doc.Nodes {
		src := &doc.Nodes[i]
		name := src.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := model.NewNode(name, i)
		n.Translation, n.Rotation, n.Scale = gltfExtractNodeTransform(src)
		if src.Mesh != nil {
			n.Mesh = *src.Mesh
		}
		for _, c := range src.Children {
			if c < 0 || c >= len(doc.Nodes) || c == i {
				return nil, fmt.Errorf("node %d has invalid child %d: %w", i, c, ErrMalformedAccessor)
			}
			if parents[c] >= 0 {
				return nil, fmt.Errorf("node %d has two parents (%d, %d): %w", c, parents[c], i, ErrMalformedAccessor)
			}
			parents[c] = i
		}
		n.Children = append([]int(nil), src.Children...)
		nodes[i] = n
	}

	for i := range nodes {
		steps := 0
		for p := parents[i]; p >= 0; p = parents[p] {
			steps++
			if steps > len(nodes) {
				return nil, fmt.Errorf("node %d is part of a cycle: %w", i, ErrMalformedAccessor)
			}
		}
	}

	return nodes, nil
}

func (e *gltfSkeletonExtractorImpl) ExtractAllSkins() ([]*model.Skin, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	skins := make([]*model.Skin, len(doc.Skins))
	for i := range doc.Skins {
		src := &doc.Skins[i]

		skin := &model.Skin{
			Joints:      append([]int(nil), src.Joints...),
			InverseBind: make([][16]float32, len(src.Joints)),
		}
		for j, node := range src.Joints {
			if node < 0 || node >= len(doc.Nodes) {
				return nil, fmt.Errorf("skin %d joint %d: invalid node index %d: %w", i, j, node, ErrMalformedAccessor)
			}
			common.Identity(skin.InverseBind[j][:])
		}

		if src.InverseBindMatrices != nil {
			ibm, err := e.parser.ReadMat4Accessor(*src.InverseBindMatrices)
			if err != nil {
				return nil, fmt.Errorf("skin %d: failed to read inverse bind matrices: %w", i, err)
			}
			copy(skin.InverseBind, ibm)
		}

		skins[i] = skin
	}

	return skins, nil
}

func (e *gltfSkeletonExtractorImpl) ExtractInstances() []model.MeshInstance {
	doc := e.parser.Document()
	if doc == nil {
		return nil
	}

	var instances []model.MeshInstance
	for i, node := range doc.Nodes {
		if node.Mesh == nil || *node.Mesh < 0 || *node.Mesh >= len(doc.Meshes) {
			continue
		}
		skin := -1
		if node.Skin != nil && *node.Skin >= 0 && *node.Skin < len(doc.Skins) {
			skin = *node.Skin
		}
		instances = append(instances, model.MeshInstance{Node: i, Mesh: *node.Mesh, Skin: skin})
	}

	return instances
}

func (e *gltfSkeletonExtractorImpl) SceneNodes() []int {
	doc := e.parser.Document()
	if doc == nil || len(doc.Scenes) == 0 {
		return nil
	}
	scene := 0
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		scene = *doc.Scene
	}
	return doc.Scenes[scene].Nodes
}

// gltfExtractNodeTransform extracts the local transform from a glTF node.
// A matrix, when present, is decomposed; otherwise missing components default to identity.
func gltfExtractNodeTransform(node *gltfNode) ([3]float32, [4]float32, [3]float32) {
	if node.Matrix != nil {
		return common.DecomposeTRS(node.Matrix[:])
	}

	t := [3]float32{}
	r := common.QuatIdentity
	s := [3]float32{1, 1, 1}
	if node.Translation != nil {
		t = *node.Translation
	}
	if node.Rotation != nil {
		r = common.QuatNormalize(*node.Rotation)
	}
	if node.Scale != nil {
		s = *node.Scale
	}
	return t, r, s
}
