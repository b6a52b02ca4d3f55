package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor defines the interface for extracting mesh data from a parsed glTF document.
// It converts raw glTF accessor data into model.Mesh values with morph targets.
type gltfMeshExtractor interface {
	// ExtractMesh extracts a single mesh by index, one model.Primitive per glTF primitive.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - *model.Mesh: the mesh
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) (*model.Mesh, error)

	// ExtractAllMeshes extracts all meshes from the document, indexed like the document's meshes.
	//
	// Returns:
	//   - []*model.Mesh: all meshes
	//   - error: error if extraction fails
	ExtractAllMeshes() ([]*model.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) (*model.Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range: %w", meshIndex, ErrMalformedAccessor)
	}

	src := &doc.Meshes[meshIndex]
	mesh := &model.Mesh{Name: src.Name}
	if mesh.Name == "" {
		mesh.Name = fmt.Sprintf("mesh_%d", meshIndex)
	}

	targetCount := 0
	for primIdx := range src.Primitives {
		prim := &src.Primitives[primIdx]
		if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
			continue
		}
		out, err := e.extractPrimitive(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		targetCount = max(targetCount, len(out.Targets))
		mesh.Primitives = append(mesh.Primitives, *out)
	}

	mesh.DefaultWeights = make([]float32, targetCount)
	copy(mesh.DefaultWeights, src.Weights)
	mesh.Weights = append([]float32(nil), mesh.DefaultWeights...)
	if src.Extras != nil {
		mesh.TargetNames = src.Extras.TargetNames
	}

	return mesh, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]*model.Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	meshes := make([]*model.Mesh, len(doc.Meshes))
	for i := range doc.Meshes {
		m, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		meshes[i] = m
	}

	return meshes, nil
}

// extractPrimitive extracts a single triangle primitive.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive) (*model.Primitive, error) {
	// Extract positions (required)
	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute: %w", ErrMalformedAccessor)
	}

	positions, err := e.parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	vertexCount := len(positions)
	vertices := make([]model.Vertex, vertexCount)
	for i, pos := range positions {
		vertices[i].Position = pos
	}

	// Extract normals (optional, generated from geometry if absent)
	hasNormals := false
	if normalAccessor, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.ReadVec3Accessor(normalAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
		for i := range normals[:min(len(normals), vertexCount)] {
			vertices[i].Normal = normals[i]
		}
		hasNormals = true
	}

	// Extract texture coordinates (optional)
	if texCoordAccessor, ok := prim.Attributes["TEXCOORD_0"]; ok {
		texCoords, err := e.parser.ReadVec2Accessor(texCoordAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
		for i := range texCoords[:min(len(texCoords), vertexCount)] {
			vertices[i].UV = texCoords[i]
		}
	}

	// Extract joint indices and weights (optional, for skinning)
	if jointsAccessor, ok := prim.Attributes["JOINTS_0"]; ok {
		joints, err := e.parser.ReadJointsAccessor(jointsAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read joints: %w", err)
		}
		for i := range joints[:min(len(joints), vertexCount)] {
			vertices[i].Joints = joints[i]
		}
	}
	if weightsAccessor, ok := prim.Attributes["WEIGHTS_0"]; ok {
		weights, err := e.parser.ReadVec4Accessor(weightsAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read weights: %w", err)
		}
		for i := range weights[:min(len(weights), vertexCount)] {
			vertices[i].Weights = normalizeWeights(weights[i])
		}
	}

	// Extract indices
	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
		for _, idx := range indices {
			if int(idx) >= vertexCount {
				return nil, fmt.Errorf("index %d exceeds vertex count %d: %w", idx, vertexCount, ErrMalformedAccessor)
			}
		}
	} else {
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	indices = indices[:len(indices)-len(indices)%3]

	if !hasNormals && len(indices) >= 3 {
		generateNormals(vertices, indices)
	}

	targets := make([]model.MorphTarget, len(prim.Targets))
	for t, attrs := range prim.Targets {
		if acc, ok := attrs["POSITION"]; ok {
			d, err := e.parser.ReadVec3Accessor(acc)
			if err != nil {
				return nil, fmt.Errorf("morph target %d positions: %w", t, err)
			}
			if len(d) != vertexCount {
				return nil, fmt.Errorf("morph target %d has %d positions, want %d: %w", t, len(d), vertexCount, ErrMalformedAccessor)
			}
			targets[t].Positions = d
		}
		if acc, ok := attrs["NORMAL"]; ok {
			d, err := e.parser.ReadVec3Accessor(acc)
			if err != nil {
				return nil, fmt.Errorf("morph target %d normals: %w", t, err)
			}
			if len(d) == vertexCount {
				targets[t].Normals = d
			}
		}
	}

	materialIndex := -1
	if prim.Material != nil {
		materialIndex = *prim.Material
	}

	return &model.Primitive{
		Vertices: vertices,
		Indices:  indices,
		Material: materialIndex,
		Targets:  targets,
	}, nil
}

// normalizeWeights rescales skin weights to sum to 1. All-zero weights are left as-is.
func normalizeWeights(w [4]float32) [4]float32 {
	sum := w[0] + w[1] + w[2] + w[3]
	if sum <= 0 || math.Abs(float64(sum-1)) < 1e-6 {
		return w
	}
	inv := 1 / sum
	return [4]float32{w[0] * inv, w[1] * inv, w[2] * inv, w[3] * inv}
}

// generateNormals computes smooth vertex normals from the triangle geometry when the
// glTF file does not provide a NORMAL attribute. For each triangle, the face normal is
// computed as the cross product of its two edges, then accumulated (area-weighted) onto
// every vertex of that triangle. All vertex normals are normalized at the end to produce
// smooth shading across shared vertices.
//
// Parameters:
//   - vertices: the vertex slice to write normal data into
//   - indices: the triangle index buffer (must be a multiple of 3)
func generateNormals(vertices []model.Vertex, indices []uint32) {
	n := len(vertices)
	accum := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		p0 := vertices[i0].Position
		p1 := vertices[i1].Position
		p2 := vertices[i2].Position

		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}

		// Cross product (area-weighted face normal)
		fn := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}

		for _, idx := range [3]uint32{i0, i1, i2} {
			accum[idx][0] += fn[0]
			accum[idx][1] += fn[1]
			accum[idx][2] += fn[2]
		}
	}

	for i := range vertices {
		a := accum[i]
		l := float32(math.Sqrt(float64(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])))
		if l > 1e-8 {
			vertices[i].Normal = [3]float32{a[0] / l, a[1] / l, a[2] / l}
		} else {
			vertices[i].Normal = [3]float32{0, 1, 0}
		}
	}
}
