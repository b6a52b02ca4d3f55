package animator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/loader"
	"github.com/Carmen-Shannon/deskvrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClipFixture(t *testing.T) (ClipManager, *model.Avatar) {
	t.Helper()
	l := loader.NewLoader(loader.BackendTypeGLTF)
	avatar, err := l.Load(loadertest.Avatar(loadertest.AvatarOptions{}))
	require.NoError(t, err)
	return NewClipManager(l, WithClipAvatar(avatar)), avatar
}

func clipBytes(duration float32, bones ...string) []byte {
	return loadertest.Clip(loadertest.ClipOptions{Duration: duration, Bones: bones, HipsMotion: true, Expression: "blink"})
}

func TestClipManager_RegisterWithoutAvatar(t *testing.T) {
	// --- Arrange ---
	m := NewClipManager(loader.NewLoader(loader.BackendTypeGLTF))

	// --- Act ---
	err := m.RegisterClip("wave", clipBytes(1.2, "spine"))

	// --- Assert ---
	assert.ErrorIs(t, err, ErrNoAvatar)
	assert.Empty(t, m.ListClipNames())
}

func TestClipManager_RegisterFailureLeavesStateUntouched(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.2, "spine")))
	m.Play("wave", DefaultPlayOptions())
	m.Update(0.3)

	// --- Act ---
	err := m.RegisterClip("wave", []byte("garbage"))

	// --- Assert ---
	assert.ErrorIs(t, err, loader.ErrNotGLB)
	clip, ok := m.Clip("wave")
	require.True(t, ok)
	assert.InDelta(t, 1.2, float64(clip.Duration()), 1e-6)
	active, playing := m.ActiveClip()
	assert.True(t, playing)
	assert.Equal(t, "wave", active)
	assert.InDelta(t, 0.3, float64(m.Time()), 1e-6)
}

func TestClipManager_ListClipNamesSorted(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)

	// --- Act ---
	require.NoError(t, m.RegisterClip("wave", clipBytes(1, "spine")))
	require.NoError(t, m.RegisterClip("bow", clipBytes(1, "spine")))
	require.NoError(t, m.RegisterClip("nod", clipBytes(1, "head")))

	// --- Assert ---
	assert.Equal(t, []string{"bow", "nod", "wave"}, m.ListClipNames())
}

func TestClipManager_PlayUnknownIsNoop(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.2, "spine")))
	m.Play("wave", DefaultPlayOptions())

	// --- Act ---
	m.Play("missing", DefaultPlayOptions())

	// --- Assert ---
	assert.True(t, m.IsPlaying())
	active, ok := m.ActiveClip()
	assert.True(t, ok)
	assert.Equal(t, "wave", active)
}

func TestClipManager_PlayUnknownWhileIdle(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)

	// --- Act ---
	m.Play("missing", DefaultPlayOptions())

	// --- Assert ---
	assert.False(t, m.IsPlaying())
	_, ok := m.ActiveClip()
	assert.False(t, ok)
}

func TestClipManager_ReRegisterReplacesClip(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.2, "spine")))
	require.NoError(t, m.RegisterClip("wave", clipBytes(0.8, "spine")))

	// --- Act ---
	m.Play("wave", PlayOptions{Loop: false})
	m.Update(0.8)

	// --- Assert ---
	assert.Equal(t, []string{"wave"}, m.ListClipNames())
	assert.False(t, m.IsPlaying())
	assert.InDelta(t, 0.8, float64(m.Time()), 1e-6)
}

func TestClipManager_SwitchIsHardCut(t *testing.T) {
	// --- Arrange ---
	m, avatar := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.2, "spine")))
	require.NoError(t, m.RegisterClip("nod", clipBytes(0.8, "head")))
	m.Play("wave", DefaultPlayOptions())
	m.Update(0.6)
	require.True(t, m.IsPlaying())
	spine, _ := avatar.Bone(model.BoneSpine)
	require.NotEqual(t, common.QuatIdentity, spine.Rotation)

	// --- Act ---
	m.Play("nod", DefaultPlayOptions())

	// --- Assert ---
	active, ok := m.ActiveClip()
	require.True(t, ok)
	assert.Equal(t, "nod", active)
	assert.Equal(t, float32(0), m.Time())
	assert.Equal(t, float32(0), avatar.Expressions().Value(model.ExpressionBlink))

	m.Update(0.4)
	nod, _ := m.Clip("nod")
	var want [4]float32
	for _, track := range nod.Tracks() {
		if track.Kind == model.TrackRotation && track.Bone == model.BoneHead {
			want = track.SampleRotation(0.4)
		}
	}
	head, _ := avatar.Bone(model.BoneHead)
	assert.Equal(t, want, head.Rotation)
	assert.Equal(t, common.QuatIdentity, spine.Rotation)
	assert.InDelta(t, 0.4, float64(m.Time()), 1e-6)
}

func TestClipManager_StopRestoresBaselineBitForBit(t *testing.T) {
	// --- Arrange ---
	m, avatar := newClipFixture(t)
	left, _ := avatar.Bone(model.BoneLeftUpperArm)
	right, _ := avatar.Bone(model.BoneRightUpperArm)
	hips, _ := avatar.Bone(model.BoneHips)
	leftAfterLoad, rightAfterLoad, hipsAfterLoad := left.Rotation, right.Rotation, hips.Translation

	require.NoError(t, m.RegisterClip("wave", clipBytes(1.2, "spine", "head", "leftUpperArm")))
	m.Play("wave", DefaultPlayOptions())
	m.Update(0.7)
	require.NotEqual(t, leftAfterLoad, left.Rotation)

	// --- Act ---
	m.Stop()

	// --- Assert ---
	assert.False(t, m.IsPlaying())
	_, ok := m.ActiveClip()
	assert.False(t, ok)
	for _, b := range avatar.HumanoidBones() {
		node, _ := avatar.Bone(b)
		switch b {
		case model.BoneLeftUpperArm:
			assert.Equal(t, leftAfterLoad, node.Rotation)
		case model.BoneRightUpperArm:
			assert.Equal(t, rightAfterLoad, node.Rotation)
		default:
			assert.Equal(t, common.QuatIdentity, node.Rotation, b.String())
		}
	}
	assert.Equal(t, hipsAfterLoad, hips.Translation)
	assert.Equal(t, float32(0), avatar.Expressions().Value(model.ExpressionBlink))
}

func TestClipManager_LoopWraps(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.0, "spine")))
	m.Play("wave", DefaultPlayOptions())

	// --- Act ---
	m.Update(1.25)

	// --- Assert ---
	assert.True(t, m.IsPlaying())
	assert.InDelta(t, 0.25, float64(m.Time()), 1e-5)
}

func TestClipManager_TimeScale(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(2.0, "spine")))
	m.Play("wave", PlayOptions{Loop: true, TimeScale: 2})

	// --- Act ---
	m.Update(0.5)

	// --- Assert ---
	assert.InDelta(t, 1.0, float64(m.Time()), 1e-6)
}

func TestClipManager_PlayOnceHoldsFinalPose(t *testing.T) {
	// --- Arrange ---
	m, avatar := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.0, "spine")))
	m.Play("wave", PlayOptions{Loop: false})
	spine, _ := avatar.Bone(model.BoneSpine)

	// --- Act ---
	m.Update(0.5)
	stillPlaying := m.IsPlaying()
	m.Update(5)
	final := spine.Rotation
	m.Update(0.5)

	// --- Assert ---
	assert.True(t, stillPlaying)
	assert.False(t, m.IsPlaying())
	_, active := m.ActiveClip()
	assert.True(t, active)
	assert.Equal(t, float32(1.0), m.Time())
	assert.Equal(t, final, spine.Rotation)
}

func TestClipManager_RemoveActiveStops(t *testing.T) {
	// --- Arrange ---
	m, avatar := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.0, "spine")))
	require.NoError(t, m.RegisterClip("nod", clipBytes(1.0, "head")))
	m.Play("wave", DefaultPlayOptions())
	m.Update(0.5)

	// --- Act ---
	m.Remove("wave")

	// --- Assert ---
	assert.Equal(t, []string{"nod"}, m.ListClipNames())
	assert.False(t, m.IsPlaying())
	spine, _ := avatar.Bone(model.BoneSpine)
	assert.Equal(t, common.QuatIdentity, spine.Rotation)
}

func TestClipManager_RemoveInactiveKeepsPlayback(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.0, "spine")))
	require.NoError(t, m.RegisterClip("nod", clipBytes(1.0, "head")))
	m.Play("wave", DefaultPlayOptions())

	// --- Act ---
	m.Remove("nod")

	// --- Assert ---
	assert.True(t, m.IsPlaying())
	assert.Equal(t, []string{"wave"}, m.ListClipNames())
}

func TestClipManager_RegisterClipsReportsFailures(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)

	// --- Act ---
	failed := m.RegisterClips(map[string][]byte{
		"wave":   clipBytes(1.0, "spine"),
		"broken": []byte("nope"),
		"bones":  loadertest.Clip(loadertest.ClipOptions{Bones: []string{"leftLowerArm"}}),
	})

	// --- Assert ---
	assert.Equal(t, []string{"wave"}, m.ListClipNames())
	require.Len(t, failed, 2)
	assert.ErrorIs(t, failed["broken"], loader.ErrNotGLB)
	assert.ErrorIs(t, failed["bones"], loader.ErrNoBoundTracks)
}

func TestClipManager_SetAvatarClearsRegistry(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.0, "spine")))
	m.Play("wave", DefaultPlayOptions())
	other, err := loader.NewLoader(loader.BackendTypeGLTF).Load(loadertest.Avatar(loadertest.AvatarOptions{MetaVersion: "0"}))
	require.NoError(t, err)

	// --- Act ---
	m.SetAvatar(other)

	// --- Assert ---
	assert.Empty(t, m.ListClipNames())
	assert.False(t, m.IsPlaying())
	_, ok := m.ActiveClip()
	assert.False(t, ok)
}

func TestClipManager_DisposeClearsEverything(t *testing.T) {
	// --- Arrange ---
	m, _ := newClipFixture(t)
	require.NoError(t, m.RegisterClip("wave", clipBytes(1.0, "spine")))
	m.Play("wave", DefaultPlayOptions())

	// --- Act ---
	m.Dispose()
	m.Update(0.1)

	// --- Assert ---
	assert.Empty(t, m.ListClipNames())
	assert.False(t, m.IsPlaying())
	assert.ErrorIs(t, m.RegisterClip("wave", clipBytes(1.0, "spine")), ErrNoAvatar)
}

func TestClipNameFromFile(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/motions/wave.vrma", want: "wave"},
		{path: "nod.VRMA", want: "nod"},
		{path: "dir/idle.loop.vrma", want: "idle.loop"},
		{path: "dance.glb", want: "dance.glb"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ClipNameFromFile(tt.path))
		})
	}
}

func TestReadClipDir(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wave.vrma"), []byte("w"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nod.VRMA"), []byte("n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.vrma"), 0o755))

	// --- Act ---
	clips, err := ReadClipDir(dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"wave": []byte("w"), "nod": []byte("n")}, clips)
}

func TestReadClipDir_MissingDirectory(t *testing.T) {
	clips, err := ReadClipDir(filepath.Join(t.TempDir(), "absent"))

	require.NoError(t, err)
	assert.Empty(t, clips)
}
