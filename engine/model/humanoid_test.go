package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHumanBone(t *testing.T) {
	tests := []struct {
		name string
		want HumanBone
		ok   bool
	}{
		{"hips", BoneHips, true},
		{"upperChest", BoneUpperChest, true},
		{"rightLittleDistal", BoneRightLittleDistal, true},
		{"leftThumbMetacarpal", BoneLeftThumbMetacarpal, true},
		{"leftThumbIntermediate", BoneLeftThumbProximal, true},
		{"tail", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseHumanBone(tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseHumanBoneVRM0_RemapsThumbs(t *testing.T) {
	b, ok := ParseHumanBoneVRM0("leftThumbProximal")
	assert.True(t, ok)
	assert.Equal(t, BoneLeftThumbMetacarpal, b)

	b, ok = ParseHumanBoneVRM0("rightThumbIntermediate")
	assert.True(t, ok)
	assert.Equal(t, BoneRightThumbProximal, b)

	b, ok = ParseHumanBoneVRM0("neck")
	assert.True(t, ok)
	assert.Equal(t, BoneNeck, b)
}

func TestHumanBone_StringRoundTrip(t *testing.T) {
	for b := HumanBone(0); b < HumanBoneCount; b++ {
		got, ok := ParseHumanBone(b.String())
		assert.True(t, ok, b.String())
		assert.Equal(t, b, got)
	}
	assert.Equal(t, "unknown", HumanBoneCount.String())
	assert.Equal(t, 55, int(HumanBoneCount))
}
