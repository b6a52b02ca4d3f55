// package common contains common types and helpers that are used throughout this engine. They are not interface-wrapped structs, just plain
// structs and functions that express commonly used data-types and math.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when texture bytes match none of the supported codecs.
var ErrUnsupportedImage = errors.New("unsupported image format")

// ImageFormat identifies a texture codec.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatWebP ImageFormat = "webp"
	ImageFormatTGA  ImageFormat = "tga"
)

// SniffImageFormat determines the codec of an embedded texture from its magic bytes, falling back to its mime type.
// TGA has no magic number, so it is only reported when the mime type names it or nothing else matched.
//
// Parameters:
//   - data: the encoded image bytes
//   - mimeType: the glTF image mimeType, may be empty
//
// Returns:
//   - ImageFormat: the detected format
func SniffImageFormat(data []byte, mimeType string) ImageFormat {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return ImageFormatPNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return ImageFormatJPEG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return ImageFormatWebP
	}

	switch strings.ToLower(mimeType) {
	case "image/png":
		return ImageFormatPNG
	case "image/jpeg", "image/jpg":
		return ImageFormatJPEG
	case "image/webp":
		return ImageFormatWebP
	}
	return ImageFormatTGA
}

// DecodeImage decodes an embedded texture into non-premultiplied RGBA.
// Supports PNG, JPEG, WebP and TGA.
//
// Parameters:
//   - data: the encoded image bytes
//   - mimeType: the glTF image mimeType, may be empty
//
// Returns:
//   - *image.NRGBA: the decoded pixels with bounds starting at (0, 0)
//   - error: ErrUnsupportedImage (wrapped) if no codec accepts the bytes
func DecodeImage(data []byte, mimeType string) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data: %w", ErrUnsupportedImage)
	}

	format := SniffImageFormat(data, mimeType)
	r := bytes.NewReader(data)

	var img image.Image
	var err error
	switch format {
	case ImageFormatPNG:
		img, err = png.Decode(r)
	case ImageFormatJPEG:
		img, err = jpeg.Decode(r)
	case ImageFormatWebP:
		img, err = webp.Decode(r)
	default:
		img, err = tga.Decode(r)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %v: %w", format, err, ErrUnsupportedImage)
	}

	return ToNRGBA(img), nil
}

// ToNRGBA converts any image into an *image.NRGBA whose bounds start at (0, 0).
// An *image.NRGBA already anchored at the origin is returned as-is.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - *image.NRGBA: the converted image
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// DownscaleImage shrinks img so that neither side exceeds maxSize, preserving the aspect ratio.
// Images already within the limit (or a non-positive limit) are returned unchanged.
// Resampling uses a Catmull-Rom kernel.
//
// Parameters:
//   - img: the source image
//   - maxSize: the largest allowed width or height in pixels
//
// Returns:
//   - *image.NRGBA: the downscaled image
func DownscaleImage(img *image.NRGBA, maxSize int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}

	scale := float64(maxSize) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))

	out := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}
