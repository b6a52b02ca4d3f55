package loader

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/deskvrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestAvatar(t *testing.T, version string) (Loader, *model.Avatar) {
	t.Helper()
	l := NewLoader(BackendTypeGLTF)
	avatar, err := l.Load(loadertest.Avatar(loadertest.AvatarOptions{MetaVersion: version}))
	require.NoError(t, err)
	return l, avatar
}

func TestParseClip_RetargetsOntoVRM1(t *testing.T) {
	// --- Arrange ---
	l, avatar := loadTestAvatar(t, "1")
	data := loadertest.Clip(loadertest.ClipOptions{
		Duration:   1.2,
		HipsHeight: 2,
		HipsMotion: true,
		Expression: "blink",
	})
	half := math.Sqrt2 / 2

	// --- Act ---
	clip, err := l.ParseClip("wave", data, avatar)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "wave", clip.Name())
	assert.InDelta(t, 1.2, float64(clip.Duration()), 1e-6)
	assert.Equal(t, 3, clip.TrackCount())
	assert.Equal(t, []string{"blink"}, clip.ExpressionNames())

	clip.Apply(avatar, 1.2)
	spine, _ := avatar.Bone(model.BoneSpine)
	assert.InDelta(t, 0, float64(spine.Rotation[0]), 1e-5)
	assert.InDelta(t, half, float64(spine.Rotation[2]), 1e-5)
	assert.InDelta(t, half, float64(spine.Rotation[3]), 1e-5)

	hips, _ := avatar.Bone(model.BoneHips)
	assert.InDelta(t, 1.1, float64(hips.Translation[1]), 1e-5)

	clip.Apply(avatar, 0.6)
	assert.InDelta(t, 1.0, float64(avatar.Expressions().Value(model.ExpressionBlink)), 1e-6)
}

func TestParseClip_MirrorsForVRM0(t *testing.T) {
	// --- Arrange ---
	l, avatar := loadTestAvatar(t, "0")
	half := math.Sqrt2 / 2

	// --- Act ---
	clip, err := l.ParseClip("nod", loadertest.Clip(loadertest.ClipOptions{}), avatar)

	// --- Assert ---
	require.NoError(t, err)
	clip.Apply(avatar, 1)
	spine, _ := avatar.Bone(model.BoneSpine)
	assert.InDelta(t, -half, float64(spine.Rotation[2]), 1e-5)
	assert.InDelta(t, half, float64(spine.Rotation[3]), 1e-5)
}

func TestParseClip_SkipsMissingBones(t *testing.T) {
	// --- Arrange ---
	l, avatar := loadTestAvatar(t, "1")
	data := loadertest.Clip(loadertest.ClipOptions{Bones: []string{"spine", "leftLowerArm"}})

	// --- Act ---
	clip, err := l.ParseClip("partial", data, avatar)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 1, clip.TrackCount())
	assert.Equal(t, model.BoneSpine, clip.Tracks()[0].Bone)
}

func TestParseClip_Failures(t *testing.T) {
	_, avatar := loadTestAvatar(t, "1")

	tests := []struct {
		name   string
		data   []byte
		avatar *model.Avatar
		want   error
	}{
		{name: "only missing bones", data: loadertest.Clip(loadertest.ClipOptions{Bones: []string{"leftLowerArm"}}), avatar: avatar, want: ErrNoBoundTracks},
		{name: "unknown expression only", data: loadertest.Clip(loadertest.ClipOptions{Bones: []string{}, Expression: "surprised"}), avatar: avatar, want: ErrNoBoundTracks},
		{name: "not a clip", data: loadertest.Avatar(loadertest.AvatarOptions{}), avatar: avatar, want: ErrNotVRMA},
		{name: "empty", data: nil, avatar: avatar, want: ErrEmptyInput},
		{name: "no avatar", data: loadertest.Clip(loadertest.ClipOptions{}), avatar: nil, want: ErrNoAvatar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// --- Arrange ---
			l := NewLoader(BackendTypeGLTF)

			// --- Act ---
			clip, err := l.ParseClip("clip", tt.data, tt.avatar)

			// --- Assert ---
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, clip)
		})
	}
}
