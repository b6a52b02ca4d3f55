// Package thumbnail renders a still of an avatar with the software renderer and encodes it as WebP.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"path"
	"strings"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/assetstore"
	"github.com/Carmen-Shannon/deskvrm/engine/camera"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/Carmen-Shannon/deskvrm/engine/renderer"
	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Ext is the extension of stored thumbnails.
const Ext = ".webp"

// ErrEmptyAvatar is returned when the avatar has no geometry to frame.
var ErrEmptyAvatar = errors.New("avatar has no geometry")

// Generator renders avatar thumbnails.
type Generator struct {
	height      int
	supersample int
	lighting    renderer.Lighting
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithHeight sets the thumbnail height in pixels. The width follows the avatar's aspect. Values <= 0 keep 256.
func WithHeight(height int) GeneratorOption {
	return func(g *Generator) {
		if height > 0 {
			g.height = height
		}
	}
}

// WithSupersample sets the factor the frame is rendered larger by before downsampling. Values < 1 keep 2.
func WithSupersample(factor int) GeneratorOption {
	return func(g *Generator) {
		if factor >= 1 {
			g.supersample = factor
		}
	}
}

// WithLighting replaces the default light rig.
func WithLighting(l renderer.Lighting) GeneratorOption {
	return func(g *Generator) {
		g.lighting = l
	}
}

// NewGenerator creates a thumbnail Generator.
//
// Parameters:
//   - opts: optional generator options
//
// Returns:
//   - *Generator: the generator
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		height:      256,
		supersample: 2,
		lighting:    renderer.DefaultLighting(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Render frames the avatar the way the desktop view does and returns the downsampled still.
// The avatar's root position is restored before returning.
//
// Parameters:
//   - avatar: the avatar to draw
//
// Returns:
//   - *image.NRGBA: the thumbnail
//   - error: ErrEmptyAvatar when there is nothing to frame, or the render error
func (g *Generator) Render(avatar *model.Avatar) (*image.NRGBA, error) {
	if avatar == nil {
		return nil, ErrEmptyAvatar
	}

	saved := avatar.Root.Position
	defer func() { avatar.Root.Position = saved }()

	avatar.Root.Position = [3]float32{}
	box := avatar.BoundingBox()
	if box.IsEmpty() {
		return nil, ErrEmptyAvatar
	}
	avatar.Root.Position = common.Vec3Scale(box.Center(), -1)

	size := box.Size()
	aspect := float32(1)
	if size[1] > 0 {
		aspect = size[0] / size[1]
	}
	width, height := Size(g.height, aspect)

	cam := camera.NewCamera(camera.WithAspect(aspect))
	cam.FitToHeight(size[1])

	r := renderer.NewRenderer(
		renderer.BackendTypeSoftware,
		nil,
		renderer.WithSize(width*g.supersample, height*g.supersample),
		renderer.WithLighting(g.lighting),
	)
	defer r.Release()

	if err := r.Render(avatar, cam); err != nil {
		return nil, fmt.Errorf("render thumbnail: %w", err)
	}
	frame := r.Frame()
	if frame == nil {
		return nil, fmt.Errorf("render thumbnail: no frame")
	}
	return Downsample(frame, width, height), nil
}

// Size returns the thumbnail dimensions for a height and aspect ratio. Both sides are at least 1.
func Size(height int, aspect float32) (int, int) {
	if height < 1 {
		height = 1
	}
	width := int(math.Round(float64(height) * float64(aspect)))
	if width < 1 {
		width = 1
	}
	return width, height
}

// Downsample scales img to width x height with premultiplied-alpha CatmullRom filtering so transparent
// edges do not darken. An image already at the target size is returned unchanged.
//
// Parameters:
//   - img: the source frame
//   - width: the target width
//   - height: the target height
//
// Returns:
//   - *image.NRGBA: the scaled image
func Downsample(img *image.NRGBA, width, height int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}

	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			si := dst.PixOffset(x, y)
			di := out.PixOffset(x, y)
			a := float64(dst.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				out.Pix[di] = clamp8(float64(dst.Pix[si]) * inv)
				out.Pix[di+1] = clamp8(float64(dst.Pix[si+1]) * inv)
				out.Pix[di+2] = clamp8(float64(dst.Pix[si+2]) * inv)
			}
			out.Pix[di+3] = dst.Pix[si+3]
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Encode writes img as lossless WebP.
func Encode(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return nil
}

// Name returns the store name of the thumbnail for a model name, e.g. "alice.vrm" becomes "alice.webp".
func Name(modelName string) string {
	base := path.Base(strings.ReplaceAll(modelName, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base)) + Ext
}

// Generate renders, encodes and stores the thumbnail of a model.
//
// Parameters:
//   - ctx: the request context
//   - avatar: the loaded avatar
//   - store: where the thumbnail is written
//   - modelName: the model the avatar was loaded from
//
// Returns:
//   - string: the stored thumbnail name
//   - error: the render, encode or store error
func (g *Generator) Generate(ctx context.Context, avatar *model.Avatar, store assetstore.Store, modelName string) (string, error) {
	img, err := g.Render(avatar)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return "", err
	}

	name := Name(modelName)
	if err := store.Write(ctx, name, buf.Bytes()); err != nil {
		return "", fmt.Errorf("store thumbnail %s: %w", name, err)
	}
	return name, nil
}
