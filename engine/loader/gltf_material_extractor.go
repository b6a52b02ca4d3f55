package loader

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"math"
	"strings"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// Material extension names
const (
	extMaterialsUnlit = "KHR_materials_unlit"
	extMaterialsMToon = "VRMC_materials_mtoon"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser         gltfParser
	maxTextureSize int

	// images caches decoded images by image index; nil entries mark images that failed to decode.
	images map[int]*image.NRGBA
}

// gltfMaterialExtractor defines the interface for extracting material and texture data
// from a parsed glTF document into render-ready model.Material values.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index, decoding its base color texture.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - *model.Material: the extracted material
	//   - error: error if extraction fails
	ExtractMaterial(materialIndex int) (*model.Material, error)

	// ExtractAllMaterials extracts all materials from the document.
	//
	// Returns:
	//   - []*model.Material: all extracted materials
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]*model.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - maxTextureSize: textures larger than this on either side are downscaled; 0 disables downscaling
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser, maxTextureSize int) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		parser:         parser,
		maxTextureSize: maxTextureSize,
		images:         make(map[int]*image.NRGBA),
	}
}

// mtoonExtension is the subset of VRMC_materials_mtoon that is rendered.
type mtoonExtension struct {
	ShadeColorFactor *[3]float32 `json:"shadeColorFactor,omitempty"`
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (*model.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range: %w", materialIndex, ErrMalformedAccessor)
	}

	mat := &doc.Materials[materialIndex]

	result := &model.Material{
		Name:        mat.Name,
		BaseColor:   [4]float32{1, 1, 1, 1},
		AlphaCutoff: 0.5,
		DoubleSided: mat.DoubleSided,
	}

	switch mat.AlphaMode {
	case "MASK":
		result.AlphaMode = model.AlphaMask
	case "BLEND":
		result.AlphaMode = model.AlphaBlend
	}
	if mat.AlphaCutoff != nil {
		result.AlphaCutoff = *mat.AlphaCutoff
	}
	if mat.EmissiveFactor != nil {
		result.Emissive = *mat.EmissiveFactor
	}

	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			result.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.BaseColorTexture != nil {
			result.Texture = e.loadTexture(pbr.BaseColorTexture.Index)
		}
	}

	// The shade color defaults to the lit color so non-toon materials render flat.
	result.ShadeColor = [3]float32{result.BaseColor[0], result.BaseColor[1], result.BaseColor[2]}

	if _, ok := mat.Extensions[extMaterialsUnlit]; ok {
		result.Unlit = true
	}
	if raw, ok := mat.Extensions[extMaterialsMToon]; ok {
		var mtoon mtoonExtension
		if err := json.Unmarshal(raw, &mtoon); err != nil {
			return nil, fmt.Errorf("material %q: %s: %w", mat.Name, extMaterialsMToon, err)
		}
		if mtoon.ShadeColorFactor != nil {
			result.ShadeColor = *mtoon.ShadeColorFactor
		}
	}

	return result, nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]*model.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	materials := make([]*model.Material, len(doc.Materials))
	for i := range doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, err
		}
		materials[i] = mat
	}

	return materials, nil
}

// loadTexture decodes the image behind a texture. Undecodable or missing images are logged and yield nil,
// so the material falls back to its color factor.
func (e *gltfMaterialExtractorImpl) loadTexture(textureIndex int) *image.NRGBA {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		log.Printf("[Loader] texture index %d out of range", textureIndex)
		return nil
	}

	tex := &doc.Textures[textureIndex]
	if tex.Source == nil {
		return nil
	}

	imageIndex := *tex.Source
	if cached, ok := e.images[imageIndex]; ok {
		return cached
	}

	img, err := e.decodeImage(imageIndex)
	if err != nil {
		log.Printf("[Loader] image %d: %v", imageIndex, err)
	}
	e.images[imageIndex] = img
	return img
}

func (e *gltfMaterialExtractorImpl) decodeImage(imageIndex int) (*image.NRGBA, error) {
	doc := e.parser.Document()
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}

	src := &doc.Images[imageIndex]

	var data []byte
	mimeType := src.MimeType
	switch {
	case src.BufferView != nil:
		raw, err := e.parser.ReadBufferView(*src.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image buffer view: %w", err)
		}
		data = raw
	case strings.HasPrefix(src.URI, "data:"):
		raw, err := decodeDataURI(src.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		data = raw
		if mimeType == "" {
			mimeType = dataURIMimeType(src.URI)
		}
	default:
		return nil, fmt.Errorf("external image %q not embedded", src.URI)
	}

	img, err := common.DecodeImage(data, mimeType)
	if err != nil {
		return nil, err
	}
	if e.maxTextureSize > 0 {
		img = common.DownscaleImage(img, e.maxTextureSize)
	}
	return img, nil
}

// dataURIMimeType returns the media type of a data URI, e.g. "image/png".
func dataURIMimeType(uri string) string {
	header, _, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return ""
	}
	mime, _, _ := strings.Cut(header, ";")
	return mime
}

// srgbToLinear converts a gamma-encoded color channel to linear.
func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow((float64(c)+0.055)/1.055, 2.4))
}
