package renderer

import "github.com/cogentcore/webgpu/wgpu"

// frameUniforms mirrors FrameUniforms in the avatar shader (group 0, binding 0).
type frameUniforms struct {
	ViewProj [16]float32
	Model    [16]float32

	// KeyLight is the key light direction (xyz) and intensity (w).
	KeyLight [4]float32

	// FillLight is the fill light direction (xyz) and intensity (w).
	FillLight [4]float32

	// Ambient holds the ambient term in x.
	Ambient [4]float32
}

// materialUniforms mirrors MaterialUniforms in the avatar shader (group 1, binding 0).
type materialUniforms struct {
	BaseColor  [4]float32
	ShadeColor [4]float32
	Emissive   [4]float32

	// Params holds alpha cutoff (x), material flags (y) and a blend toggle (z).
	Params [4]float32
}

const (
	frameUniformsSize    = 176
	materialUniformsSize = 64

	// vertexStride is position plus normal, three floats each.
	vertexStride = 24
	uvStride     = 8
)

// pipelineVariant selects one of the avatar render pipelines.
type pipelineVariant struct {
	blend       bool
	doubleSided bool
}

// gpuPrimitive holds the buffers of one drawn primitive.
// The vertex buffer is rewritten every frame with skinned data; UVs and indices are static.
type gpuPrimitive struct {
	vertexBuffer *wgpu.Buffer
	uvBuffer     *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	vertexCount  int
	indexCount   int
}

func (p *gpuPrimitive) release() {
	for _, buf := range []*wgpu.Buffer{p.vertexBuffer, p.uvBuffer, p.indexBuffer} {
		if buf != nil {
			buf.Release()
		}
	}
}

// gpuMaterial holds the uniform buffer, texture and bind group of one material.
type gpuMaterial struct {
	uniform   *wgpu.Buffer
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
}

func (m *gpuMaterial) release() {
	if m.bindGroup != nil {
		m.bindGroup.Release()
	}
	if m.view != nil {
		m.view.Release()
	}
	if m.texture != nil {
		m.texture.Release()
	}
	if m.uniform != nil {
		m.uniform.Release()
	}
}
