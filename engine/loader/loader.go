package loader

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// Sentinel errors returned (wrapped) by the loader, for matching with errors.Is.
var (
	// ErrEmptyInput is returned when the asset bytes are empty.
	ErrEmptyInput = errors.New("empty input")

	// ErrNotGLB is returned when the bytes are neither a GLB container nor a glTF JSON document.
	ErrNotGLB = errors.New("not a GLB asset")

	// ErrInvalidVersion is returned for a GLB container or glTF asset version other than 2.
	ErrInvalidVersion = errors.New("unsupported glTF version")

	// ErrNotVRM is returned when the asset carries neither the VRMC_vrm nor the VRM extension.
	ErrNotVRM = errors.New("asset has no VRM extension")

	// ErrMissingHumanoid is returned when a required humanoid bone is absent.
	ErrMissingHumanoid = errors.New("required humanoid bones missing")

	// ErrMalformedAccessor is returned for out-of-range indices and inconsistent accessor data.
	ErrMalformedAccessor = errors.New("malformed accessor")

	// ErrNotVRMA is returned when clip bytes carry no VRMC_vrm_animation extension.
	ErrNotVRMA = errors.New("asset has no VRMC_vrm_animation extension")

	// ErrNoBoundTracks is returned when no track of a clip applies to the avatar.
	ErrNoBoundTracks = errors.New("clip has no tracks bound to the avatar")

	// ErrNoAvatar is returned when a clip is parsed without a target avatar.
	ErrNoAvatar = errors.New("no avatar to bind the clip to")
)

// DefaultArmRestAngle is the upper-arm roll applied at load time so the avatar does not rest in a T-pose.
const DefaultArmRestAngle = float32(math.Pi / 2.6)

// DefaultMaxTextureSize is the largest texture side kept after decoding.
const DefaultMaxTextureSize = 1024

// LoaderBackendType identifies the asset format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB (VRM, VRMA) loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	backend loaderBackend

	armRestAngle   float32
	maxTextureSize int
}

// Loader defines the public-facing interface for loading avatars and motion clips.
// It abstracts the file format behind a generic backend. A Loader holds no per-asset state
// and is safe for concurrent use.
type Loader interface {
	// Load parses VRM bytes into an avatar. On success shadows are disabled on every mesh node
	// and both upper arms are rolled to the baseline rest angle.
	//
	// Parameters:
	//   - data: the VRM (GLB) bytes
	//
	// Returns:
	//   - *model.Avatar: the loaded avatar
	//   - error: a wrapped sentinel (ErrEmptyInput, ErrNotGLB, ErrInvalidVersion, ErrNotVRM,
	//     ErrMissingHumanoid, ErrMalformedAccessor) describing the failure
	Load(data []byte) (*model.Avatar, error)

	// LoadFile reads a file and loads it with Load.
	//
	// Parameters:
	//   - path: the file path to the VRM file
	//
	// Returns:
	//   - *model.Avatar: the loaded avatar
	//   - error: error if reading or loading fails
	LoadFile(path string) (*model.Avatar, error)

	// ParseClip parses VRMA bytes into a clip bound to avatar's skeleton.
	//
	// Parameters:
	//   - name: the clip name
	//   - data: the VRMA (GLB) bytes
	//   - avatar: the avatar the clip is retargeted onto
	//
	// Returns:
	//   - *model.AnimationClip: the bound clip
	//   - error: error if parsing fails or nothing binds (ErrNoBoundTracks)
	ParseClip(name string, data []byte, avatar *model.Avatar) (*model.AnimationClip, error)

	// ArmRestAngle returns the baseline upper-arm roll the loader applies.
	ArmRestAngle() float32
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		armRestAngle:   DefaultArmRestAngle,
		maxTextureSize: DefaultMaxTextureSize,
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(data []byte) (*model.Avatar, error) {
	avatar, err := l.backend.LoadAvatar(data, importSettings{
		armRestAngle:   l.armRestAngle,
		maxTextureSize: l.maxTextureSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load avatar: %w", err)
	}

	log.Printf("[Loader] loaded avatar %q (VRM %s, %d humanoid bones, %d meshes)",
		avatar.Name, avatar.MetaVersion(), len(avatar.HumanoidBones()), len(avatar.Meshes()))
	return avatar, nil
}

func (l *loader) LoadFile(path string) (*model.Avatar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	avatar, err := l.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return avatar, nil
}

func (l *loader) ParseClip(name string, data []byte, avatar *model.Avatar) (*model.AnimationClip, error) {
	if avatar == nil {
		return nil, ErrNoAvatar
	}
	clip, err := l.backend.LoadClip(name, data, avatar)
	if err != nil {
		return nil, fmt.Errorf("failed to parse clip %q: %w", name, err)
	}
	return clip, nil
}

func (l *loader) ArmRestAngle() float32 {
	return l.armRestAngle
}
