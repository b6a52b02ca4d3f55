package animator

import (
	"math"

	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// PlayOptions configures a clip action.
type PlayOptions struct {
	// Loop repeats the clip forever when true; otherwise it plays once and holds the final pose.
	Loop bool

	// TimeScale multiplies elapsed time. Zero or negative values are treated as 1.
	TimeScale float32
}

// DefaultPlayOptions returns looping playback at normal speed.
func DefaultPlayOptions() PlayOptions {
	return PlayOptions{Loop: true, TimeScale: 1}
}

// clipAction is the playback state of one clip on the mixer.
type clipAction struct {
	name string
	clip *model.AnimationClip

	time, speed float32
	loop        bool
	running     bool
	finished    bool
}

func newClipAction(name string, clip *model.AnimationClip, opts PlayOptions) *clipAction {
	speed := opts.TimeScale
	if speed <= 0 {
		speed = 1
	}
	return &clipAction{
		name:    name,
		clip:    clip,
		speed:   speed,
		loop:    opts.Loop,
		running: true,
	}
}

// advance moves the action time forward, wrapping looped actions and clamping play-once actions.
func (c *clipAction) advance(dt float32) {
	if !c.running || c.finished {
		return
	}
	c.time += dt * c.speed

	duration := c.clip.Duration()
	if c.loop {
		if duration > 0 && c.time > duration {
			c.time = float32(math.Mod(float64(c.time), float64(duration)))
		}
		return
	}
	if c.time >= duration {
		c.time = duration
		c.finished = true
	}
}

// mixer drives at most one clip action onto an avatar.
type mixer struct {
	avatar *model.Avatar
	action *clipAction
}

// play replaces the current action with a new one at time 0 and samples its first frame.
func (m *mixer) play(a *clipAction) {
	m.action = a
	if m.avatar != nil {
		a.clip.Apply(m.avatar, 0)
	}
}

// stop halts and drops the current action.
func (m *mixer) stop() *clipAction {
	a := m.action
	if a != nil {
		a.running = false
	}
	m.action = nil
	return a
}

// update advances the current action and writes the sampled pose. A finished play-once action keeps holding its last pose.
func (m *mixer) update(dt float32) {
	if m.action == nil || m.avatar == nil {
		return
	}
	m.action.advance(dt)
	m.action.clip.Apply(m.avatar, m.action.time)
}
