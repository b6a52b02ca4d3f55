package loader

import (
	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// loaderBackend defines the generic interface for turning asset bytes into avatars and clips.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// LoadAvatar performs a full avatar import from the given bytes.
	//
	// Parameters:
	//   - data: the asset bytes
	//   - settings: the loader settings
	//
	// Returns:
	//   - *model.Avatar: the imported avatar
	//   - error: error if loading fails
	LoadAvatar(data []byte, settings importSettings) (*model.Avatar, error)

	// LoadClip imports a motion clip bound to avatar.
	//
	// Parameters:
	//   - name: the clip name
	//   - data: the clip bytes
	//   - avatar: the target avatar
	//
	// Returns:
	//   - *model.AnimationClip: the clip
	//   - error: error if loading fails
	LoadClip(name string, data []byte, avatar *model.Avatar) (*model.AnimationClip, error)
}
