package animator

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// ErrNoAvatar is returned when a clip is registered before an avatar is bound.
var ErrNoAvatar = errors.New("no avatar bound")

// ClipParser parses motion clip bytes into a clip bound to an avatar's skeleton.
// loader.Loader satisfies it.
type ClipParser interface {
	ParseClip(name string, data []byte, avatar *model.Avatar) (*model.AnimationClip, error)
}

// clipManager is the implementation of the ClipManager interface.
type clipManager struct {
	parser ClipParser

	avatar *model.Avatar
	clips  map[string]*model.AnimationClip
	mixer  mixer
}

// ClipManager owns the registry of named motion clips for the bound avatar and plays at most one of them at a time.
// Switching clips is a hard cut.
//
// The ClipManager is not safe for concurrent use; it belongs to the frame thread.
type ClipManager interface {
	// SetAvatar binds a new avatar. The registry and playback are cleared since clips are bound to a skeleton.
	//
	// Parameters:
	//   - a: the avatar, or nil to unbind
	SetAvatar(a *model.Avatar)

	// RegisterClip parses clip bytes against the bound avatar and stores the clip under name,
	// replacing any existing clip of that name. On failure the registry and playback are unchanged.
	//
	// Parameters:
	//   - name: the clip name
	//   - data: the clip bytes
	//
	// Returns:
	//   - error: ErrNoAvatar without a bound avatar, or the parse error
	RegisterClip(name string, data []byte) error

	// RegisterClips registers a batch of clips.
	//
	// Parameters:
	//   - clips: clip bytes keyed by name
	//
	// Returns:
	//   - map[string]error: the failures keyed by name; empty when all succeeded
	RegisterClips(clips map[string][]byte) map[string]error

	// AddClip stores an already parsed clip under its own name. The clip must be bound to the current avatar.
	//
	// Returns:
	//   - error: ErrNoAvatar without a bound avatar
	AddClip(clip *model.AnimationClip) error

	// Clip returns a registered clip.
	Clip(name string) (*model.AnimationClip, bool)

	// ListClipNames returns the registered clip names in sorted order.
	ListClipNames() []string

	// Play stops the current clip and starts name from time 0.
	// An unregistered name is logged and ignored.
	//
	// Parameters:
	//   - name: the clip name
	//   - opts: loop mode and time scale
	Play(name string, opts PlayOptions)

	// Stop halts playback and returns the avatar to the idle-ready pose: every humanoid rotation
	// reset to identity, the baseline arm roll re-applied, the hips translation restored and the
	// clip's expressions zeroed.
	Stop()

	// Remove deletes a clip, stopping it first if it is active.
	Remove(name string)

	// Update advances the active clip by dt seconds and writes the sampled pose. No-op when nothing is active.
	Update(dt float32)

	// IsPlaying reports whether a clip is active and has not finished a play-once run.
	IsPlaying() bool

	// ActiveClip returns the active clip name.
	//
	// Returns:
	//   - string: the name, or "" when idle
	//   - bool: true if a clip is active
	ActiveClip() (string, bool)

	// Time returns the active action's playback time, or 0 when idle.
	Time() float32

	// Dispose stops playback and clears the registry and avatar.
	Dispose()
}

var _ ClipManager = &clipManager{}

// NewClipManager creates a ClipManager.
//
// Parameters:
//   - parser: the clip parser used by RegisterClip
//   - options: variadic list of ClipManagerBuilderOption functions to configure the manager
//
// Returns:
//   - ClipManager: the new manager
func NewClipManager(parser ClipParser, options ...ClipManagerBuilderOption) ClipManager {
	m := &clipManager{
		parser: parser,
		clips:  make(map[string]*model.AnimationClip),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// ClipNameFromFile derives a clip name from a file path by dropping the directory and a .vrma extension.
//
// Parameters:
//   - path: the clip file path
//
// Returns:
//   - string: the clip name
func ClipNameFromFile(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".vrma") {
		base = base[:len(base)-len(ext)]
	}
	return base
}

// ReadClipDir reads every .vrma file of dir, keyed by ClipNameFromFile. A missing directory yields no clips.
//
// Parameters:
//   - dir: the clip directory
//
// Returns:
//   - map[string][]byte: clip bytes keyed by name
//   - error: error if the directory or a file cannot be read
func ReadClipDir(dir string) (map[string][]byte, error) {
	clips := make(map[string][]byte)
	if dir == "" {
		return clips, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return clips, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read clip dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ".vrma") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read clip %s: %w", e.Name(), err)
		}
		clips[ClipNameFromFile(e.Name())] = data
	}
	return clips, nil
}

func (m *clipManager) SetAvatar(a *model.Avatar) {
	m.mixer.stop()
	m.clips = make(map[string]*model.AnimationClip)
	m.avatar = a
	m.mixer.avatar = a
}

func (m *clipManager) RegisterClip(name string, data []byte) error {
	if m.avatar == nil {
		return ErrNoAvatar
	}
	clip, err := m.parser.ParseClip(name, data, m.avatar)
	if err != nil {
		return fmt.Errorf("failed to register clip %q: %w", name, err)
	}
	m.clips[name] = clip
	return nil
}

func (m *clipManager) RegisterClips(clips map[string][]byte) map[string]error {
	names := make([]string, 0, len(clips))
	for name := range clips {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := make(map[string]error)
	for _, name := range names {
		if err := m.RegisterClip(name, clips[name]); err != nil {
			failed[name] = err
		}
	}
	return failed
}

func (m *clipManager) AddClip(clip *model.AnimationClip) error {
	if m.avatar == nil {
		return ErrNoAvatar
	}
	m.clips[clip.Name()] = clip
	return nil
}

func (m *clipManager) Clip(name string) (*model.AnimationClip, bool) {
	c, ok := m.clips[name]
	return c, ok
}

func (m *clipManager) ListClipNames() []string {
	names := make([]string, 0, len(m.clips))
	for name := range m.clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *clipManager) Play(name string, opts PlayOptions) {
	clip, ok := m.clips[name]
	if !ok {
		log.Printf("[Animator] cannot play %q: clip is not registered", name)
		return
	}

	if prev := m.mixer.stop(); prev != nil {
		m.restoreBaseline(prev)
	}
	m.mixer.play(newClipAction(name, clip, opts))
}

func (m *clipManager) Stop() {
	m.restoreBaseline(m.mixer.stop())
}

// restoreBaseline puts the avatar back in its idle-ready pose: identity humanoid rotations, the arm rest
// baseline and the hips rest translation. The expression channels prev drove are zeroed.
func (m *clipManager) restoreBaseline(prev *clipAction) {
	if m.avatar == nil {
		return
	}

	m.avatar.ResetHumanoidRotations()
	m.avatar.ApplyArmBaseline(m.avatar.ArmRestAngle())
	if hips, ok := m.avatar.Bone(model.BoneHips); ok {
		if rest, ok := m.avatar.Rest(model.BoneHips); ok {
			hips.Translation = rest.LocalTranslation
		}
	}
	if prev != nil {
		m.clearExpressions(prev.clip)
	}
}

// clearExpressions zeroes the expression channels a clip drives.
func (m *clipManager) clearExpressions(clip *model.AnimationClip) {
	em := m.avatar.Expressions()
	if em == nil {
		return
	}
	for _, name := range clip.ExpressionNames() {
		em.SetValue(name, 0)
	}
}

func (m *clipManager) Remove(name string) {
	if active, ok := m.ActiveClip(); ok && active == name {
		m.Stop()
	}
	delete(m.clips, name)
}

func (m *clipManager) Update(dt float32) {
	m.mixer.update(dt)
}

func (m *clipManager) IsPlaying() bool {
	a := m.mixer.action
	return a != nil && a.running && !a.finished
}

func (m *clipManager) ActiveClip() (string, bool) {
	if m.mixer.action == nil {
		return "", false
	}
	return m.mixer.action.name, true
}

func (m *clipManager) Time() float32 {
	if m.mixer.action == nil {
		return 0
	}
	return m.mixer.action.time
}

func (m *clipManager) Dispose() {
	m.Stop()
	m.clips = make(map[string]*model.AnimationClip)
	m.avatar = nil
	m.mixer.avatar = nil
}
