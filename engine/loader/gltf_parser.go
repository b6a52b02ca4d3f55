package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Common errors returned by the parser
var (
	errInvalidGLBVersion = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk  = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI  = errors.New("invalid buffer URI")
	errNoDocument        = errors.New("no document loaded")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser defines the interface for parsing GLB bytes and reading typed accessor data.
// This is internal to the loader package.
type gltfParser interface {
	// Parse parses GLB bytes (or, when the GLB magic is absent and the data looks like JSON, a self-contained glTF document).
	//
	// Parameters:
	//   - data: the raw asset bytes
	//
	// Returns:
	//   - error: ErrEmptyInput, ErrNotGLB or ErrInvalidVersion (wrapped) on malformed input
	Parse(data []byte) error

	// Document returns the parsed glTF document, or nil if Parse has not succeeded.
	Document() *gltfDocument

	// ReadBufferView returns the raw bytes of a buffer view.
	//
	// Parameters:
	//   - index: the buffer view index
	//
	// Returns:
	//   - []byte: the bytes, aliasing the buffer
	//   - error: error if the view is out of range
	ReadBufferView(index int) ([]byte, error)

	// ReadFloats reads any numeric accessor as float32, applying integer normalization when flagged.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []float32: the flattened component data
	//   - int: the number of components per element
	//   - error: error if reading fails
	ReadFloats(accessorIndex int) ([]float32, int, error)

	ReadVec2Accessor(accessorIndex int) ([][2]float32, error)
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)
	ReadVec4Accessor(accessorIndex int) ([][4]float32, error)
	ReadScalarAccessor(accessorIndex int) ([]float32, error)
	ReadMat4Accessor(accessorIndex int) ([][16]float32, error)

	// ReadIndicesAccessor reads an accessor as index data (uint32).
	// Handles UNSIGNED_BYTE, UNSIGNED_SHORT, and UNSIGNED_INT component types.
	ReadIndicesAccessor(accessorIndex int) ([]uint32, error)

	// ReadJointsAccessor reads an accessor as joint indices (vec4 uint).
	// Handles UNSIGNED_BYTE and UNSIGNED_SHORT component types.
	ReadJointsAccessor(accessorIndex int) ([][4]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyInput
	}
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		return p.parseGLB(data)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return p.parseGLTF(data)
	}
	return fmt.Errorf("missing glTF magic: %w", ErrNotGLB)
}

// parseGLTF parses a glTF JSON document whose buffers are all data URIs.
func (p *gltfParserImpl) parseGLTF(data []byte) error {
	return p.decodeDocument(data)
}

// parseGLB parses a GLB binary file.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("GLB file too small: %w", ErrNotGLB)
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Version != gltfGLBVersion {
		return fmt.Errorf("%w: %w", errInvalidGLBVersion, ErrInvalidVersion)
	}

	var jsonData []byte
	var binData []byte

	for {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		if int64(chunkHeader.ChunkLength) > int64(r.Len()) {
			return fmt.Errorf("chunk length %d exceeds remaining %d bytes: %w", chunkHeader.ChunkLength, r.Len(), ErrNotGLB)
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}

		switch chunkHeader.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = chunkData
		case gltfGLBChunkBIN:
			binData = chunkData
		}
	}

	if jsonData == nil {
		return fmt.Errorf("%w: %w", errMissingJSONChunk, ErrNotGLB)
	}

	p.glbBinaryChunk = binData
	return p.decodeDocument(jsonData)
}

func (p *gltfParserImpl) decodeDocument(jsonData []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %v: %w", err, ErrNotGLB)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("glTF version %q: %w", doc.Asset.Version, ErrInvalidVersion)
	}

	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}

	p.document = &doc
	return nil
}

// loadBuffers loads all buffer data from the GLB binary chunk or base64 data URIs.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk: %w", i, ErrMalformedAccessor)
		default:
			return fmt.Errorf("buffer %d: external URI %q not supported for in-memory assets: %w", i, buf.URI, ErrMalformedAccessor)
		}

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d holds %d bytes, declares %d: %w", i, len(buf.Data), buf.ByteLength, ErrMalformedAccessor)
		}
	}

	return nil
}

// decodeDataURI decodes a base64 data URI.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, errInvalidBufferURI
	}

	header := uri[5:commaIdx]
	dataStr := uri[commaIdx+1:]

	if !strings.Contains(header, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}

	data, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	return data, nil
}

func (p *gltfParserImpl) ReadBufferView(index int) ([]byte, error) {
	if p.document == nil {
		return nil, errNoDocument
	}
	doc := p.document
	if index < 0 || index >= len(doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range: %w", index, ErrMalformedAccessor)
	}
	bv := &doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d references buffer %d: %w", index, bv.Buffer, ErrMalformedAccessor)
	}
	data := doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d [%d:%d] exceeds buffer of %d bytes: %w", index, bv.ByteOffset, end, len(data), ErrMalformedAccessor)
	}
	return data[bv.ByteOffset:end], nil
}

// --- Accessor Data Reading ---

// accessor returns the accessor definition after validating the index.
func (p *gltfParserImpl) accessor(accessorIndex int) (*gltfAccessor, error) {
	if p.document == nil {
		return nil, errNoDocument
	}
	if accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range: %w", accessorIndex, ErrMalformedAccessor)
	}
	return &p.document.Accessors[accessorIndex], nil
}

// readAccessorData returns tightly packed element bytes for an accessor. An accessor without a bufferView reads as zeros.
func (p *gltfParserImpl) readAccessorData(acc *gltfAccessor) ([]byte, error) {
	if acc.Sparse != nil {
		return nil, fmt.Errorf("sparse accessors not supported: %w", ErrMalformedAccessor)
	}

	componentSize := gltfComponentTypeSize(acc.ComponentType)
	componentCount := gltfAccessorTypeComponentCount(acc.Type)
	elementSize := componentSize * componentCount
	if elementSize == 0 || acc.Count < 0 {
		return nil, fmt.Errorf("accessor type %s/%d: %w", acc.Type, acc.ComponentType, ErrMalformedAccessor)
	}

	result := make([]byte, acc.Count*elementSize)
	if acc.BufferView == nil {
		return result, nil
	}

	view, err := p.ReadBufferView(*acc.BufferView)
	if err != nil {
		return nil, err
	}

	stride := elementSize
	bv := &p.document.BufferViews[*acc.BufferView]
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	if acc.Count > 0 {
		last := acc.ByteOffset + (acc.Count-1)*stride + elementSize
		if acc.ByteOffset < 0 || last > len(view) {
			return nil, fmt.Errorf("accessor needs %d bytes, view has %d: %w", last, len(view), ErrMalformedAccessor)
		}
	}

	for i := 0; i < acc.Count; i++ {
		src := acc.ByteOffset + i*stride
		copy(result[i*elementSize:(i+1)*elementSize], view[src:src+elementSize])
	}

	return result, nil
}

func (p *gltfParserImpl) ReadFloats(accessorIndex int) ([]float32, int, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, 0, err
	}
	data, err := p.readAccessorData(acc)
	if err != nil {
		return nil, 0, err
	}

	comps := gltfAccessorTypeComponentCount(acc.Type)
	n := acc.Count * comps
	out := make([]float32, n)

	switch acc.ComponentType {
	case gltfComponentTypeFloat:
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case gltfComponentTypeUnsignedByte:
		for i := 0; i < n; i++ {
			out[i] = normalizeComponent(float32(data[i]), 255, acc.Normalized)
		}
	case gltfComponentTypeByte:
		for i := 0; i < n; i++ {
			out[i] = normalizeComponent(float32(int8(data[i])), 127, acc.Normalized)
		}
	case gltfComponentTypeUnsignedShort:
		for i := 0; i < n; i++ {
			out[i] = normalizeComponent(float32(binary.LittleEndian.Uint16(data[i*2:])), 65535, acc.Normalized)
		}
	case gltfComponentTypeShort:
		for i := 0; i < n; i++ {
			out[i] = normalizeComponent(float32(int16(binary.LittleEndian.Uint16(data[i*2:]))), 32767, acc.Normalized)
		}
	case gltfComponentTypeUnsignedInt:
		for i := 0; i < n; i++ {
			out[i] = float32(binary.LittleEndian.Uint32(data[i*4:]))
		}
	default:
		return nil, 0, fmt.Errorf("unsupported component type %d: %w", acc.ComponentType, ErrMalformedAccessor)
	}

	return out, comps, nil
}

// normalizeComponent maps a normalized integer onto [0, 1] or [-1, 1].
func normalizeComponent(v, maxValue float32, normalized bool) float32 {
	if !normalized {
		return v
	}
	return max(v/maxValue, -1)
}

// readTyped reads an accessor and checks its element width.
func (p *gltfParserImpl) readTyped(accessorIndex int, wantType string) ([]float32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != wantType {
		return nil, fmt.Errorf("accessor %d is %s, want %s: %w", accessorIndex, acc.Type, wantType, ErrMalformedAccessor)
	}
	data, _, err := p.ReadFloats(accessorIndex)
	return data, err
}

func (p *gltfParserImpl) ReadVec2Accessor(accessorIndex int) ([][2]float32, error) {
	data, err := p.readTyped(accessorIndex, gltfAccessorTypeVec2)
	if err != nil {
		return nil, err
	}
	result := make([][2]float32, len(data)/2)
	for i := range result {
		result[i] = [2]float32(data[i*2 : i*2+2])
	}
	return result, nil
}

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	data, err := p.readTyped(accessorIndex, gltfAccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	result := make([][3]float32, len(data)/3)
	for i := range result {
		result[i] = [3]float32(data[i*3 : i*3+3])
	}
	return result, nil
}

func (p *gltfParserImpl) ReadVec4Accessor(accessorIndex int) ([][4]float32, error) {
	data, err := p.readTyped(accessorIndex, gltfAccessorTypeVec4)
	if err != nil {
		return nil, err
	}
	result := make([][4]float32, len(data)/4)
	for i := range result {
		result[i] = [4]float32(data[i*4 : i*4+4])
	}
	return result, nil
}

func (p *gltfParserImpl) ReadScalarAccessor(accessorIndex int) ([]float32, error) {
	return p.readTyped(accessorIndex, gltfAccessorTypeScalar)
}

func (p *gltfParserImpl) ReadMat4Accessor(accessorIndex int) ([][16]float32, error) {
	data, err := p.readTyped(accessorIndex, gltfAccessorTypeMat4)
	if err != nil {
		return nil, err
	}
	result := make([][16]float32, len(data)/16)
	for i := range result {
		result[i] = [16]float32(data[i*16 : i*16+16])
	}
	return result, nil
}

func (p *gltfParserImpl) ReadIndicesAccessor(accessorIndex int) ([]uint32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor is not SCALAR: type=%s: %w", acc.Type, ErrMalformedAccessor)
	}

	data, err := p.readAccessorData(acc)
	if err != nil {
		return nil, err
	}

	result := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case gltfComponentTypeUnsignedByte:
		for i := range result {
			result[i] = uint32(data[i])
		}
	case gltfComponentTypeUnsignedShort:
		for i := range result {
			result[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case gltfComponentTypeUnsignedInt:
		for i := range result {
			result[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	default:
		return nil, fmt.Errorf("unsupported index component type: %d: %w", acc.ComponentType, ErrMalformedAccessor)
	}

	return result, nil
}

func (p *gltfParserImpl) ReadJointsAccessor(accessorIndex int) ([][4]uint32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeVec4 {
		return nil, fmt.Errorf("joints accessor is not VEC4: type=%s: %w", acc.Type, ErrMalformedAccessor)
	}

	data, err := p.readAccessorData(acc)
	if err != nil {
		return nil, err
	}

	result := make([][4]uint32, acc.Count)
	switch acc.ComponentType {
	case gltfComponentTypeUnsignedByte:
		for i := range result {
			result[i] = [4]uint32{uint32(data[i*4]), uint32(data[i*4+1]), uint32(data[i*4+2]), uint32(data[i*4+3])}
		}
	case gltfComponentTypeUnsignedShort:
		for i := range result {
			o := i * 8
			result[i] = [4]uint32{
				uint32(binary.LittleEndian.Uint16(data[o:])),
				uint32(binary.LittleEndian.Uint16(data[o+2:])),
				uint32(binary.LittleEndian.Uint16(data[o+4:])),
				uint32(binary.LittleEndian.Uint16(data[o+6:])),
			}
		}
	default:
		return nil, fmt.Errorf("unsupported joints component type: %d: %w", acc.ComponentType, ErrMalformedAccessor)
	}

	return result, nil
}

// --- Helper Functions ---

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, "MAT2":
		return 4
	case "MAT3":
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
