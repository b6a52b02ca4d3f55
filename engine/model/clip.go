package model

import (
	"sort"

	"github.com/Carmen-Shannon/deskvrm/common"
)

// TrackKind identifies what a keyframe track animates.
type TrackKind int

const (
	// TrackRotation animates a bone's local rotation (4 values per key).
	TrackRotation TrackKind = iota
	// TrackTranslation animates a bone's local translation (3 values per key).
	TrackTranslation
	// TrackExpression animates an expression weight (1 value per key).
	TrackExpression
)

// Interpolation is the keyframe interpolation mode.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
)

// Track is a keyframe track addressed to a humanoid bone or an expression channel.
// Values are flattened with Stride() values per key.
type Track struct {
	Kind          TrackKind
	Bone          HumanBone
	Expression    string
	Interpolation Interpolation
	Times         []float32
	Values        []float32
}

// Stride returns the number of values per key for the track's kind.
func (t *Track) Stride() int {
	switch t.Kind {
	case TrackRotation:
		return 4
	case TrackTranslation:
		return 3
	default:
		return 1
	}
}

// Valid reports whether the track has keys and matching value storage.
func (t *Track) Valid() bool {
	return len(t.Times) > 0 && len(t.Values) == len(t.Times)*t.Stride()
}

// locate returns the key pair bracketing time and the blend factor between them.
// Times outside the key range clamp to the first or last key.
func (t *Track) locate(time float32) (int, int, float32) {
	n := len(t.Times)
	if time <= t.Times[0] {
		return 0, 0, 0
	}
	if time >= t.Times[n-1] {
		return n - 1, n - 1, 0
	}
	hi := sort.Search(n, func(i int) bool { return t.Times[i] > time })
	lo := hi - 1
	if t.Interpolation == InterpolationStep {
		return lo, lo, 0
	}
	span := t.Times[hi] - t.Times[lo]
	if span <= 0 {
		return hi, hi, 0
	}
	return lo, hi, (time - t.Times[lo]) / span
}

// SampleRotation samples a rotation track with spherical-linear interpolation.
func (t *Track) SampleRotation(time float32) [4]float32 {
	lo, hi, f := t.locate(time)
	a := [4]float32(t.Values[lo*4 : lo*4+4])
	if lo == hi {
		return a
	}
	b := [4]float32(t.Values[hi*4 : hi*4+4])
	return common.QuatNormalize(common.QuatSlerp(a, b, f))
}

// SampleVec3 samples a translation track with linear interpolation.
func (t *Track) SampleVec3(time float32) [3]float32 {
	lo, hi, f := t.locate(time)
	a := [3]float32(t.Values[lo*3 : lo*3+3])
	if lo == hi {
		return a
	}
	b := [3]float32(t.Values[hi*3 : hi*3+3])
	return common.Vec3Lerp(a, b, f)
}

// SampleScalar samples a weight track with linear interpolation.
func (t *Track) SampleScalar(time float32) float32 {
	lo, hi, f := t.locate(time)
	a := t.Values[lo]
	if lo == hi {
		return a
	}
	return a + (t.Values[hi]-a)*f
}

// AnimationClip is an immutable named set of keyframe tracks.
type AnimationClip struct {
	name     string
	duration float32
	tracks   []Track
}

// NewAnimationClip creates a clip from valid tracks. Invalid tracks are dropped.
// The duration is the latest key time of any track.
//
// Parameters:
//   - name: the clip name
//   - tracks: the keyframe tracks
//
// Returns:
//   - *AnimationClip: the clip
func NewAnimationClip(name string, tracks []Track) *AnimationClip {
	c := &AnimationClip{name: name}
	for _, t := range tracks {
		if !t.Valid() {
			continue
		}
		c.tracks = append(c.tracks, t)
		if last := t.Times[len(t.Times)-1]; last > c.duration {
			c.duration = last
		}
	}
	return c
}

// Name returns the clip name.
func (c *AnimationClip) Name() string { return c.name }

// Duration returns the clip length in seconds.
func (c *AnimationClip) Duration() float32 { return c.duration }

// TrackCount returns the number of tracks.
func (c *AnimationClip) TrackCount() int { return len(c.tracks) }

// Tracks returns a copy of the track list. Key data is shared and must not be modified.
func (c *AnimationClip) Tracks() []Track {
	return append([]Track(nil), c.tracks...)
}

// ExpressionNames returns the sorted, de-duplicated expression channels the clip drives.
func (c *AnimationClip) ExpressionNames() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range c.tracks {
		t := &c.tracks[i]
		if t.Kind != TrackExpression {
			continue
		}
		if _, ok := seen[t.Expression]; ok {
			continue
		}
		seen[t.Expression] = struct{}{}
		out = append(out, t.Expression)
	}
	sort.Strings(out)
	return out
}

// Apply samples every track at time and writes the result onto the avatar.
// Tracks addressed to bones or expressions the avatar lacks are ignored.
//
// Parameters:
//   - a: the target avatar
//   - time: the sample time in seconds
func (c *AnimationClip) Apply(a *Avatar, time float32) {
	for i := range c.tracks {
		t := &c.tracks[i]
		switch t.Kind {
		case TrackRotation:
			if n, ok := a.Bone(t.Bone); ok {
				n.Rotation = t.SampleRotation(time)
			}
		case TrackTranslation:
			if n, ok := a.Bone(t.Bone); ok {
				n.Translation = t.SampleVec3(time)
			}
		case TrackExpression:
			if em := a.Expressions(); em != nil {
				em.SetValue(t.Expression, t.SampleScalar(time))
			}
		}
	}
}
