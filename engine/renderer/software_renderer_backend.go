package renderer

import (
	"image"
	"math"
	"sync"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// screenVertex is a projected vertex: pixel coordinates, NDC depth and 1/w for perspective correction.
type screenVertex struct {
	x, y, z float32
	invW    float32
	visible bool
}

// softwareRendererBackendImpl rasterizes frames on the CPU into a non-premultiplied RGBA buffer.
// The color buffer is cleared to transparent each frame, so empty pixels composite cleanly on the desktop.
type softwareRendererBackendImpl struct {
	mu sync.Mutex

	width  int
	height int
	color  []uint8   // NRGBA interleaved, len = W*H*4
	depth  []float32 // NDC depth per pixel, cleared to +Inf

	// scratch reused across draws
	screen  []screenVertex
	normals [][3]float32
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend() *softwareRendererBackendImpl {
	return &softwareRendererBackendImpl{}
}

func (b *softwareRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	b.width, b.height = width, height
	b.color = make([]uint8, width*height*4)
	b.depth = make([]float32, width*height)
}

func (b *softwareRendererBackendImpl) SetPresentMode(mode PresentMode) {}

func (b *softwareRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.color, b.depth = nil, nil
	b.screen, b.normals = nil, nil
}

func (b *softwareRendererBackendImpl) Draw(f *frameData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.color)
	inf := float32(math.Inf(1))
	for i := range b.depth {
		b.depth[i] = inf
	}
	if f == nil || b.width == 0 {
		return nil
	}

	for i := range f.draws {
		b.drawPrimitive(f, &f.draws[i])
	}
	return nil
}

// snapshot copies the color buffer into a new image.
func (b *softwareRendererBackendImpl) snapshot() *image.NRGBA {
	b.mu.Lock()
	defer b.mu.Unlock()

	img := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	copy(img.Pix, b.color)
	return img
}

// drawPrimitive projects one skinned primitive and rasterizes its triangles.
func (b *softwareRendererBackendImpl) drawPrimitive(f *frameData, d *drawItem) {
	n := len(d.positions)
	if cap(b.screen) < n {
		b.screen = make([]screenVertex, n)
		b.normals = make([][3]float32, n)
	}
	b.screen = b.screen[:n]
	b.normals = b.normals[:n]

	fw, fh := float32(b.width), float32(b.height)
	for i, p := range d.positions {
		world := common.TransformPoint(f.model[:], p)
		ndc, w := common.ProjectPoint(f.viewProj[:], world)
		if w <= 0 {
			b.screen[i] = screenVertex{}
			continue
		}
		b.screen[i] = screenVertex{
			x:       (ndc[0] + 1) * 0.5 * fw,
			y:       (1 - ndc[1]) * 0.5 * fh,
			z:       ndc[2],
			invW:    1 / w,
			visible: true,
		}
		b.normals[i] = common.Vec3Normalize(common.TransformDirection(f.model[:], d.normals[i]))
	}

	idx := d.prim.Indices
	for t := 0; t+2 < len(idx); t += 3 {
		i0, i1, i2 := int(idx[t]), int(idx[t+1]), int(idx[t+2])
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		b.rasterTriangle(f, d, [3]int{i0, i1, i2})
	}
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// rasterTriangle fills one triangle with perspective-correct UV and normal interpolation,
// a depth test, and the material's alpha mode.
func (b *softwareRendererBackendImpl) rasterTriangle(f *frameData, d *drawItem, vi [3]int) {
	v0, v1, v2 := b.screen[vi[0]], b.screen[vi[1]], b.screen[vi[2]]
	if !v0.visible || !v1.visible || !v2.visible {
		return
	}

	// Counter-clockwise triangles in NDC are clockwise in y-down pixel space, giving a negative area.
	area := edge(v0.x, v0.y, v1.x, v1.y, v2.x, v2.y)
	if area == 0 {
		return
	}
	backFace := area > 0
	mat := d.material
	if backFace && !mat.DoubleSided {
		return
	}
	invArea := 1 / area

	minX := int(max(0, min(v0.x, v1.x, v2.x)))
	maxX := int(min(float32(b.width-1), max(v0.x, v1.x, v2.x)))
	minY := int(max(0, min(v0.y, v1.y, v2.y)))
	maxY := int(min(float32(b.height-1), max(v0.y, v1.y, v2.y)))
	if minX > maxX || minY > maxY {
		return
	}

	verts := d.prim.Vertices
	uv0, uv1, uv2 := verts[vi[0]].UV, verts[vi[1]].UV, verts[vi[2]].UV
	n0, n1, n2 := b.normals[vi[0]], b.normals[vi[1]], b.normals[vi[2]]
	tex := mat.Texture
	blend := mat.AlphaMode == model.AlphaBlend

	for py := minY; py <= maxY; py++ {
		cy := float32(py) + 0.5
		row := py * b.width
		for px := minX; px <= maxX; px++ {
			cx := float32(px) + 0.5
			w0 := edge(v1.x, v1.y, v2.x, v2.y, cx, cy) * invArea
			w1 := edge(v2.x, v2.y, v0.x, v0.y, cx, cy) * invArea
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*v0.z + w1*v1.z + w2*v2.z
			pi := row + px
			if z < 0 || z > 1 || z >= b.depth[pi] {
				continue
			}

			q0, q1, q2 := w0*v0.invW, w1*v1.invW, w2*v2.invW
			qs := 1 / (q0 + q1 + q2)
			q0, q1, q2 = q0*qs, q1*qs, q2*qs

			r, g, bl, a := uint8(255), uint8(255), uint8(255), uint8(255)
			if tex != nil {
				u := q0*uv0[0] + q1*uv1[0] + q2*uv2[0]
				v := q0*uv0[1] + q1*uv1[1] + q2*uv2[1]
				r, g, bl, a = sampleTexture(tex, u, v)
			}

			alpha := float32(a) / 255 * mat.BaseColor[3]
			switch mat.AlphaMode {
			case model.AlphaOpaque:
				alpha = 1
			case model.AlphaMask:
				if alpha < mat.AlphaCutoff {
					continue
				}
				alpha = 1
			default:
				if alpha < 1.0/255 {
					continue
				}
			}

			nrm := common.Vec3Normalize([3]float32{
				q0*n0[0] + q1*n1[0] + q2*n2[0],
				q0*n0[1] + q1*n1[1] + q2*n2[1],
				q0*n0[2] + q1*n1[2] + q2*n2[2],
			})
			if backFace {
				nrm = common.Vec3Scale(nrm, -1)
			}

			base := [3]float32{
				srgbToLinear[r] * mat.BaseColor[0],
				srgbToLinear[g] * mat.BaseColor[1],
				srgbToLinear[bl] * mat.BaseColor[2],
			}
			rgb := shadeLinear(base, mat, nrm, &f.lighting)

			ci := pi * 4
			if !blend {
				b.depth[pi] = z
				b.color[ci] = encodeSRGB(rgb[0])
				b.color[ci+1] = encodeSRGB(rgb[1])
				b.color[ci+2] = encodeSRGB(rgb[2])
				b.color[ci+3] = 255
				continue
			}
			b.blendPixel(ci, rgb, alpha)
		}
	}
}

// blendPixel composites a linear color over the stored non-premultiplied pixel.
func (b *softwareRendererBackendImpl) blendPixel(ci int, rgb [3]float32, alpha float32) {
	dstA := float32(b.color[ci+3]) / 255
	outA := alpha + dstA*(1-alpha)
	if outA <= 0 {
		return
	}
	for c := 0; c < 3; c++ {
		dst := srgbToLinear[b.color[ci+c]]
		b.color[ci+c] = encodeSRGB((rgb[c]*alpha + dst*dstA*(1-alpha)) / outA)
	}
	b.color[ci+3] = uint8(common.Clamp(outA*255+0.5, 0, 255))
}

// sampleTexture performs bilinear filtering with UV wrapping.
// Returns RGBA as uint8. Accesses tex.Pix directly for performance.
func sampleTexture(tex *image.NRGBA, u, v float32) (r, g, b, a uint8) {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()
	if w == 0 || h == 0 {
		return 255, 255, 255, 255
	}

	u -= float32(math.Floor(float64(u)))
	v -= float32(math.Floor(float64(v)))

	fx := u * float32(w-1)
	fy := v * float32(h-1)
	x0 := int(fx)
	y0 := int(fy)
	x1 := (x0 + 1) % w
	y1 := (y0 + 1) % h
	dx := fx - float32(x0)
	dy := fy - float32(y0)

	stride := tex.Stride
	pix := tex.Pix

	i00 := y0*stride + x0*4
	i10 := y0*stride + x1*4
	i01 := y1*stride + x0*4
	i11 := y1*stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	var out [4]uint8
	for c := 0; c < 4; c++ {
		s := float32(pix[i00+c])*w00 + float32(pix[i10+c])*w10 + float32(pix[i01+c])*w01 + float32(pix[i11+c])*w11
		out[c] = uint8(s + 0.5)
	}
	return out[0], out[1], out[2], out[3]
}
