// Package loadertest synthesizes small VRM and VRMA GLB assets for tests.
package loadertest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
)

// Builder accumulates glTF JSON objects and a binary chunk and serializes them as GLB.
type Builder struct {
	// Version is written into the GLB header. It defaults to 2.
	Version uint32

	bin bytes.Buffer

	Nodes       []map[string]any
	Meshes      []map[string]any
	Skins       []map[string]any
	Materials   []map[string]any
	Textures    []map[string]any
	Images      []map[string]any
	Animations  []map[string]any
	SceneNodes  []int
	Extensions  map[string]any
	accessors   []map[string]any
	bufferViews []map[string]any
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{Version: 2, Extensions: make(map[string]any)}
}

// AddNode appends a node with a translation and returns its index.
func (b *Builder) AddNode(name string, translation [3]float32, children ...int) int {
	n := map[string]any{"name": name, "translation": translation}
	if len(children) > 0 {
		n["children"] = children
	}
	b.Nodes = append(b.Nodes, n)
	return len(b.Nodes) - 1
}

// addView writes raw bytes into the binary chunk, 4-byte aligned, and returns the buffer view index.
func (b *Builder) addView(data []byte) int {
	for b.bin.Len()%4 != 0 {
		b.bin.WriteByte(0)
	}
	offset := b.bin.Len()
	b.bin.Write(data)
	b.bufferViews = append(b.bufferViews, map[string]any{
		"buffer":     0,
		"byteOffset": offset,
		"byteLength": len(data),
	})
	return len(b.bufferViews) - 1
}

// AddFloats appends a FLOAT accessor of the given type ("SCALAR", "VEC3", ...) and returns its index.
func (b *Builder) AddFloats(typ string, data []float32) int {
	buf := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	comps := map[string]int{"SCALAR": 1, "VEC2": 2, "VEC3": 3, "VEC4": 4, "MAT4": 16}[typ]
	return b.addAccessor(b.addView(buf), 5126, typ, len(data)/comps)
}

// AddIndices appends an UNSIGNED_SHORT index accessor.
func (b *Builder) AddIndices(data []uint16) int {
	buf := make([]byte, len(data)*2)
	for i, v := range data {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return b.addAccessor(b.addView(buf), 5123, "SCALAR", len(data))
}

// AddJoints appends an UNSIGNED_BYTE VEC4 joints accessor.
func (b *Builder) AddJoints(data [][4]uint8) int {
	buf := make([]byte, 0, len(data)*4)
	for _, j := range data {
		buf = append(buf, j[:]...)
	}
	return b.addAccessor(b.addView(buf), 5121, "VEC4", len(data))
}

// AddRawAccessor appends an accessor with explicit fields, for malformed-input tests.
func (b *Builder) AddRawAccessor(acc map[string]any) int {
	b.accessors = append(b.accessors, acc)
	return len(b.accessors) - 1
}

// AddImage embeds encoded image bytes and returns the texture index referencing it.
func (b *Builder) AddImage(data []byte, mimeType string) int {
	view := b.addView(data)
	b.Images = append(b.Images, map[string]any{"bufferView": view, "mimeType": mimeType})
	b.Textures = append(b.Textures, map[string]any{"source": len(b.Images) - 1})
	return len(b.Textures) - 1
}

func (b *Builder) addAccessor(view, componentType int, typ string, count int) int {
	b.accessors = append(b.accessors, map[string]any{
		"bufferView":    view,
		"componentType": componentType,
		"type":          typ,
		"count":         count,
	})
	return len(b.accessors) - 1
}

// Build serializes the asset as GLB bytes.
func (b *Builder) Build() []byte {
	doc := map[string]any{
		"asset": map[string]any{"version": "2.0", "generator": "loadertest"},
		"nodes": b.Nodes,
	}
	if len(b.SceneNodes) > 0 {
		doc["scene"] = 0
		doc["scenes"] = []any{map[string]any{"nodes": b.SceneNodes}}
	}
	set := func(key string, v []map[string]any) {
		if len(v) > 0 {
			doc[key] = v
		}
	}
	set("meshes", b.Meshes)
	set("skins", b.Skins)
	set("materials", b.Materials)
	set("textures", b.Textures)
	set("images", b.Images)
	set("animations", b.Animations)
	set("accessors", b.accessors)
	set("bufferViews", b.bufferViews)
	if len(b.Extensions) > 0 {
		doc["extensions"] = b.Extensions
	}

	for b.bin.Len()%4 != 0 {
		b.bin.WriteByte(0)
	}
	if b.bin.Len() > 0 {
		doc["buffers"] = []any{map[string]any{"byteLength": b.bin.Len()}}
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}

	var out bytes.Buffer
	total := 12 + 8 + len(jsonData)
	if b.bin.Len() > 0 {
		total += 8 + b.bin.Len()
	}
	write := func(v uint32) { _ = binary.Write(&out, binary.LittleEndian, v) }
	write(0x46546C67)
	write(b.Version)
	write(uint32(total))
	write(uint32(len(jsonData)))
	write(0x4E4F534A)
	out.Write(jsonData)
	if b.bin.Len() > 0 {
		write(uint32(b.bin.Len()))
		write(0x004E4942)
		out.Write(b.bin.Bytes())
	}
	return out.Bytes()
}
