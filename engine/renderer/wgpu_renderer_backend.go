package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount  // MSAA sample count for the main render pass

	// Avatar pipeline state, created on the first ConfigureSurface once the surface format is known.
	frameLayout    *wgpu.BindGroupLayout
	materialLayout *wgpu.BindGroupLayout
	pipelines      map[pipelineVariant]*wgpu.RenderPipeline
	frameBuffer    *wgpu.Buffer
	frameBindGroup *wgpu.BindGroup
	sampler        *wgpu.Sampler
	whiteTexture   *image.NRGBA

	// Per-avatar GPU resources, rebuilt when a different avatar is drawn.
	avatar     *model.Avatar
	primitives map[primitiveKey]*gpuPrimitive
	materials  map[int]*gpuMaterial

	vertexScratch []float32
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) *wgpuRendererBackendImpl {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: sampleCount,
		primitives:  make(map[primitiveKey]*gpuPrimitive),
		materials:   make(map[int]*gpuMaterial),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	white := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []uint8{255, 255, 255, 255})
	w.whiteTexture = white

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	// A premultiplied surface lets the desktop show through cleared pixels.
	alphaMode := capabilities.AlphaModes[0]
	for _, m := range capabilities.AlphaModes {
		if m == wgpu.CompositeAlphaModePremultiplied {
			alphaMode = m
			break
		}
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   alphaMode,
	})

	if b.pipelines == nil {
		if err := b.createPipelines(); err != nil {
			panic(err)
		}
	}

	b.releaseTargets()

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// Create the MSAA texture that the render pass draws into; the resolved
		// result is written to the swapchain view as the ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTexture = msaaTexture
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTexture = depthTexture
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	// When MSAA is enabled, View is the MSAA texture and ResolveTarget is
	// set per-frame to the swapchain view. When disabled, View is set
	// per-frame to the swapchain view and ResolveTarget remains nil.
	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.msaaTextureView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    storeOp,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuRendererBackendImpl) releaseTargets() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

// createPipelines builds the bind group layouts, the shared frame uniform buffer and the four avatar
// pipeline variants (opaque or blended, culled or double sided).
func (b *wgpuRendererBackendImpl) createPipelines() error {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Avatar Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: avatarShaderSource,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create avatar shader: %w", err)
	}

	b.frameLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Frame Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: frameUniformsSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create frame bind group layout: %w", err)
	}

	b.materialLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Material Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: materialUniformsSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create material bind group layout: %w", err)
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Avatar Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.frameLayout, b.materialLayout},
	})
	if err != nil {
		return err
	}

	b.frameBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Frame Uniforms",
		Size:  frameUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.frameBindGroup, err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Frame Bind Group",
		Layout: b.frameLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.frameBuffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return err
	}

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Avatar Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}

	vertexLayouts := []wgpu.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			},
		},
		{
			ArrayStride: uvStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 2},
			},
		},
	}

	// Colors leave the shader premultiplied.
	premultiplied := &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}

	b.pipelines = make(map[pipelineVariant]*wgpu.RenderPipeline, 4)
	for _, v := range []pipelineVariant{{false, false}, {false, true}, {true, false}, {true, true}} {
		target := wgpu.ColorTargetState{
			Format:    *b.surfaceFormat,
			WriteMask: wgpu.ColorWriteMaskAll,
		}
		if v.blend {
			target.Blend = premultiplied
		}
		cull := wgpu.CullModeBack
		if v.doubleSided {
			cull = wgpu.CullModeNone
		}

		created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  fmt.Sprintf("Avatar Pipeline (blend=%t, doubleSided=%t)", v.blend, v.doubleSided),
			Layout: layout,
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: "vs_main",
				Buffers:    vertexLayouts,
			},
			Fragment: &wgpu.FragmentState{
				Module:     module,
				EntryPoint: "fs_main",
				Targets:    []wgpu.ColorTargetState{target},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  wgpu.PrimitiveTopologyTriangleList,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  cull,
			},
			Multisample: wgpu.MultisampleState{
				Count: uint32(b.sampleCount),
				Mask:  0xFFFFFFFF,
			},
			DepthStencil: &wgpu.DepthStencilState{
				Format:            wgpu.TextureFormatDepth24Plus,
				DepthWriteEnabled: !v.blend,
				DepthCompare:      wgpu.CompareFunctionLess,
				StencilFront: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
				StencilBack: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create avatar pipeline: %w", err)
		}
		b.pipelines[v] = created
	}

	return nil
}

func (b *wgpuRendererBackendImpl) Draw(f *frameData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderPassDescriptor == nil {
		return fmt.Errorf("surface is not configured")
	}

	if f != nil {
		if err := b.upload(f); err != nil {
			return err
		}
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	if f != nil {
		pass.SetBindGroup(0, b.frameBindGroup, nil)
		for i := range f.draws {
			d := &f.draws[i]
			gp := b.primitives[d.key]
			gm := b.materials[d.materialIndex]
			if gp == nil || gm == nil || gp.indexCount == 0 {
				continue
			}
			variant := pipelineVariant{blend: d.material.AlphaMode == model.AlphaBlend, doubleSided: d.material.DoubleSided}
			pass.SetPipeline(b.pipelines[variant])
			pass.SetBindGroup(1, gm.bindGroup, nil)
			pass.SetVertexBuffer(0, gp.vertexBuffer, 0, wgpu.WholeSize)
			pass.SetVertexBuffer(1, gp.uvBuffer, 0, wgpu.WholeSize)
			pass.SetIndexBuffer(gp.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(uint32(gp.indexCount), 1, 0, 0, 0)
		}
	}

	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	b.surface.Present()
	return nil
}

// upload writes the frame uniforms and this frame's skinned vertices, creating per-avatar
// buffers and material bind groups on first use.
func (b *wgpuRendererBackendImpl) upload(f *frameData) error {
	if f.avatar != b.avatar {
		b.releaseAvatar()
		b.avatar = f.avatar
	}

	l := f.lighting
	u := frameUniforms{
		ViewProj:  f.viewProj,
		Model:     f.model,
		KeyLight:  [4]float32{l.KeyDirection[0], l.KeyDirection[1], l.KeyDirection[2], l.KeyIntensity},
		FillLight: [4]float32{l.FillDirection[0], l.FillDirection[1], l.FillDirection[2], l.FillIntensity},
		Ambient:   [4]float32{l.Ambient, 0, 0, 0},
	}
	b.queue.WriteBuffer(b.frameBuffer, 0, common.StructToBytes(&u))

	for i := range f.draws {
		d := &f.draws[i]
		if len(d.prim.Indices) == 0 || len(d.positions) == 0 {
			continue
		}

		gp, ok := b.primitives[d.key]
		if !ok {
			var err error
			gp, err = b.createPrimitive(d)
			if err != nil {
				return err
			}
			b.primitives[d.key] = gp
		}
		if _, ok := b.materials[d.materialIndex]; !ok {
			gm, err := b.createMaterial(d.material)
			if err != nil {
				return err
			}
			b.materials[d.materialIndex] = gm
		}

		n := len(d.positions)
		if n > gp.vertexCount {
			n = gp.vertexCount
		}
		if cap(b.vertexScratch) < n*6 {
			b.vertexScratch = make([]float32, n*6)
		}
		data := b.vertexScratch[:n*6]
		for v := 0; v < n; v++ {
			p, nrm := d.positions[v], d.normals[v]
			data[v*6], data[v*6+1], data[v*6+2] = p[0], p[1], p[2]
			data[v*6+3], data[v*6+4], data[v*6+5] = nrm[0], nrm[1], nrm[2]
		}
		b.queue.WriteBuffer(gp.vertexBuffer, 0, common.SliceToBytes(data))
	}
	return nil
}

func (b *wgpuRendererBackendImpl) createPrimitive(d *drawItem) (*gpuPrimitive, error) {
	n := len(d.prim.Vertices)
	gp := &gpuPrimitive{vertexCount: n, indexCount: len(d.prim.Indices)}

	var err error
	gp.vertexBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Avatar Vertex Buffer",
		Size:  uint64(n * vertexStride),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	uvs := make([][2]float32, n)
	for i := range d.prim.Vertices {
		uvs[i] = d.prim.Vertices[i].UV
	}
	gp.uvBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Avatar UV Buffer",
		Size:  uint64(n * uvStride),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		gp.release()
		return nil, err
	}
	b.queue.WriteBuffer(gp.uvBuffer, 0, common.SliceToBytes(uvs))

	gp.indexBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Avatar Index Buffer",
		Size:  uint64(len(d.prim.Indices) * 4),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		gp.release()
		return nil, err
	}
	b.queue.WriteBuffer(gp.indexBuffer, 0, common.SliceToBytes(d.prim.Indices))

	return gp, nil
}

func (b *wgpuRendererBackendImpl) createMaterial(m *model.Material) (*gpuMaterial, error) {
	gm := &gpuMaterial{}

	blend := float32(0)
	if m.AlphaMode == model.AlphaBlend {
		blend = 1
	}
	u := materialUniforms{
		BaseColor:  m.BaseColor,
		ShadeColor: [4]float32{m.ShadeColor[0], m.ShadeColor[1], m.ShadeColor[2], 1},
		Emissive:   [4]float32{m.Emissive[0], m.Emissive[1], m.Emissive[2], 0},
		Params:     [4]float32{m.AlphaCutoff, float32(materialFlags(m)), blend, 0},
	}

	var err error
	gm.uniform, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: m.Name + " Material Uniforms",
		Size:  materialUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(gm.uniform, 0, common.StructToBytes(&u))

	img := m.Texture
	if img == nil {
		img = b.whiteTexture
	}
	if err := b.uploadTexture(gm, m.Name, img); err != nil {
		gm.release()
		return nil, err
	}

	gm.bindGroup, err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  m.Name + " Material Bind Group",
		Layout: b.materialLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: gm.uniform, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: gm.view},
			{Binding: 2, Sampler: b.sampler},
		},
	})
	if err != nil {
		gm.release()
		return nil, err
	}
	return gm, nil
}

func (b *wgpuRendererBackendImpl) uploadTexture(gm *gpuMaterial, label string, img *image.NRGBA) error {
	width := uint32(img.Rect.Dx())
	height := uint32(img.Rect.Dy())

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	gm.texture = tex

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		img.Pix,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(img.Stride),
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	gm.view, err = tex.CreateView(nil)
	return err
}

func (b *wgpuRendererBackendImpl) releaseAvatar() {
	for k, gp := range b.primitives {
		gp.release()
		delete(b.primitives, k)
	}
	for k, gm := range b.materials {
		gm.release()
		delete(b.materials, k)
	}
	b.avatar = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseAvatar()
	b.releaseTargets()
	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	if b.frameBindGroup != nil {
		b.frameBindGroup.Release()
	}
	if b.frameBuffer != nil {
		b.frameBuffer.Release()
	}
	if b.sampler != nil {
		b.sampler.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
}
