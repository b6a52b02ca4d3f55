package loader

import (
	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend is a loaderBackend implementation for VRM and VRMA (GLB) assets.
// It delegates to the gltfImporter for parsing and extraction.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for VRM and VRMA files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(),
	}
}

func (b *gltfLoaderBackendImpl) LoadAvatar(data []byte, settings importSettings) (*model.Avatar, error) {
	return b.importer.ImportAvatar(data, settings)
}

func (b *gltfLoaderBackendImpl) LoadClip(name string, data []byte, avatar *model.Avatar) (*model.AnimationClip, error) {
	return b.importer.ImportClip(name, data, avatar)
}
