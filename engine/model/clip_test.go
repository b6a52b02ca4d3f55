package model

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_SampleScalar_LinearAndClamped(t *testing.T) {
	tr := Track{Kind: TrackExpression, Expression: "aa", Times: []float32{0, 1, 2}, Values: []float32{0, 1, 0}}

	assert.InDelta(t, 0, tr.SampleScalar(-1), 1e-6)
	assert.InDelta(t, 0.5, tr.SampleScalar(0.5), 1e-6)
	assert.InDelta(t, 0.75, tr.SampleScalar(1.25), 1e-6)
	assert.InDelta(t, 0, tr.SampleScalar(5), 1e-6)
}

func TestTrack_SampleScalar_Step(t *testing.T) {
	tr := Track{Kind: TrackExpression, Interpolation: InterpolationStep, Times: []float32{0, 1}, Values: []float32{0.2, 0.8}}

	assert.InDelta(t, 0.2, tr.SampleScalar(0.99), 1e-6)
	assert.InDelta(t, 0.8, tr.SampleScalar(1), 1e-6)
}

func TestTrack_SampleRotation_Slerp(t *testing.T) {
	// --- Arrange ---
	q90 := common.QuatFromAxisAngle([3]float32{0, 1, 0}, math.Pi/2)
	tr := Track{
		Kind:   TrackRotation,
		Bone:   BoneHead,
		Times:  []float32{0, 1},
		Values: append(common.QuatIdentity[:], q90[:]...),
	}

	// --- Act ---
	mid := tr.SampleRotation(0.5)

	// --- Assert ---
	want := common.QuatFromAxisAngle([3]float32{0, 1, 0}, math.Pi/4)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, want[i], mid[i], 1e-5)
	}
}

func TestNewAnimationClip_DurationAndInvalidTracks(t *testing.T) {
	clip := NewAnimationClip("wave", []Track{
		{Kind: TrackExpression, Expression: "happy", Times: []float32{0, 1.2}, Values: []float32{0, 1}},
		{Kind: TrackTranslation, Bone: BoneHips, Times: []float32{0, 3}, Values: []float32{0, 0}},
		{Kind: TrackExpression, Expression: "aa", Times: []float32{0, 0.4}, Values: []float32{1, 0}},
	})

	assert.Equal(t, "wave", clip.Name())
	assert.InDelta(t, 1.2, clip.Duration(), 1e-6)
	assert.Equal(t, 2, clip.TrackCount())
	assert.Equal(t, []string{"aa", "happy"}, clip.ExpressionNames())
}

func TestAnimationClip_Apply(t *testing.T) {
	// --- Arrange ---
	a := newTestAvatar(t)
	q := common.QuatFromAxisAngle([3]float32{1, 0, 0}, 0.5)
	clip := NewAnimationClip("nod", []Track{
		{Kind: TrackRotation, Bone: BoneHead, Times: []float32{0}, Values: q[:]},
		{Kind: TrackRotation, Bone: BoneJaw, Times: []float32{0}, Values: q[:]},
		{Kind: TrackTranslation, Bone: BoneHips, Times: []float32{0, 1}, Values: []float32{0, 1, 0, 0, 2, 0}},
		{Kind: TrackExpression, Expression: ExpressionBlink, Times: []float32{0}, Values: []float32{0.7}},
	})

	// --- Act ---
	clip.Apply(a, 0.5)

	// --- Assert ---
	head, _ := a.Bone(BoneHead)
	hips, _ := a.Bone(BoneHips)
	require.NotNil(t, head)
	assert.Equal(t, q, head.Rotation)
	assert.InDelta(t, 1.5, hips.Translation[1], 1e-6)
	assert.InDelta(t, 0.7, a.Expressions().Value(ExpressionBlink), 1e-6)
}
