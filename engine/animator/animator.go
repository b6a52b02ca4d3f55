package animator

import (
	"math"
	"math/rand"
	"time"

	"github.com/Carmen-Shannon/deskvrm/common"
	"github.com/Carmen-Shannon/deskvrm/engine/model"
)

// RandomSource yields uniformly distributed values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// animator is the implementation of the Animator interface.
type animator struct {
	settings Settings
	random   RandomSource

	avatar *model.Avatar
	state  ProceduralState
}

// Animator produces procedural idle motion for an avatar: blinking, breathing, idle sway and
// secondary-bone physics. It is driven once per frame by the render loop while no clip is playing.
//
// The Animator is not safe for concurrent use; it belongs to the frame thread.
type Animator interface {
	// SetAvatar binds an avatar and resets the procedural state. A nil avatar unbinds.
	//
	// Parameters:
	//   - a: the avatar to animate
	SetAvatar(a *model.Avatar)

	// Avatar returns the bound avatar, or nil.
	Avatar() *model.Avatar

	// Update advances every enabled subsystem by dt seconds, in the order physics, blink,
	// breathing, idle sway, then writes expression weights. No-op without an avatar.
	//
	// Parameters:
	//   - dt: elapsed seconds since the previous tick
	Update(dt float32)

	// Settle removes the procedural offsets currently applied to the pose and ends any blink in progress.
	// Call it before another writer takes over the skeleton so the offsets are not baked in.
	Settle()

	// State returns a snapshot of the procedural state.
	//
	// Returns:
	//   - ProceduralState: a copy of the current state
	State() ProceduralState

	// Settings returns the active settings.
	Settings() Settings
}

var _ Animator = &animator{}

// NewAnimator creates a procedural Animator.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions to configure the animator
//
// Returns:
//   - Animator: the new animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		settings: DefaultSettings(),
		random:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range options {
		opt(a)
	}
	a.reset()
	return a
}

func (a *animator) SetAvatar(avatar *model.Avatar) {
	a.avatar = avatar
	a.reset()
}

func (a *animator) Avatar() *model.Avatar {
	return a.avatar
}

func (a *animator) State() ProceduralState {
	return a.state
}

func (a *animator) Settings() Settings {
	return a.settings
}

func (a *animator) reset() {
	a.state = ProceduralState{}
	a.state.BlinkInterval = a.nextBlinkInterval()
}

// nextBlinkInterval draws a blink interval uniformly from [min, max].
func (a *animator) nextBlinkInterval() float32 {
	lo, hi := a.settings.BlinkIntervalMin, a.settings.BlinkIntervalMax
	if hi <= lo {
		return lo
	}
	return lo + float32(a.random.Float64())*(hi-lo)
}

func (a *animator) Update(dt float32) {
	if a.avatar == nil {
		return
	}

	if a.settings.SpringBone {
		a.updatePhysics(dt)
	}
	if a.settings.Blink {
		a.updateBlink(dt)
	}
	if a.settings.Breathing {
		a.updateBreathing(dt)
	}
	if a.settings.IdleMotion {
		a.updateIdle(dt)
	}

	if em := a.avatar.Expressions(); em != nil {
		em.Update()
	}
}

func (a *animator) updatePhysics(dt float32) {
	solver := a.avatar.Physics()
	if solver == nil {
		return
	}
	a.avatar.UpdateWorld()
	solver.Update(dt)
}

// updateBlink advances the blink cycle. The part of the crossing tick past the interval counts toward the blink.
func (a *animator) updateBlink(dt float32) {
	s := &a.state

	step := dt
	if s.Blink == BlinkIdle {
		s.BlinkTimer += dt
		if s.BlinkTimer >= s.BlinkInterval {
			s.Blink = BlinkRising
			s.BlinkProgress = 0
			s.BlinkValue = 0
			step = s.BlinkTimer - s.BlinkInterval
		}
	}

	if s.Blink != BlinkIdle {
		duration := a.settings.BlinkDuration
		if duration <= 0 {
			s.BlinkProgress = 1
		} else {
			s.BlinkProgress += step / duration
		}

		if s.BlinkProgress < 0.5 {
			s.BlinkValue = common.Clamp(2*s.BlinkProgress, 0, 1)
		} else {
			s.Blink = BlinkFalling
			s.BlinkValue = common.Clamp(2*(1-s.BlinkProgress), 0, 1)
		}

		if s.BlinkProgress >= 1 {
			s.Blink = BlinkIdle
			s.BlinkProgress = 0
			s.BlinkTimer = 0
			s.BlinkInterval = a.nextBlinkInterval()
			s.BlinkValue = 0
		}
	}

	if em := a.avatar.Expressions(); em != nil {
		em.SetValue(model.ExpressionBlink, s.BlinkValue)
	}
}

func (a *animator) updateBreathing(dt float32) {
	s := &a.state
	s.BreathPhase += dt * a.settings.BreathSpeed * 2 * math.Pi
	s.BreathOutput = float32(math.Sin(float64(s.BreathPhase))) * a.settings.BreathIntensity

	if n, ok := a.avatar.Bone(model.BoneSpine); ok {
		n.Scale[1] = 1 + s.BreathOutput
	}
	if n, ok := a.avatar.Bone(model.BoneChest); ok {
		n.Scale[1] = 1 + s.BreathOutput*0.5
	}
}

func (a *animator) updateIdle(dt float32) {
	s := &a.state
	s.IdlePhase += dt * a.settings.IdleSpeed

	intensity := a.settings.IdleIntensity
	phase := float64(s.IdlePhase)
	next := [3]float32{
		float32(math.Sin(1.3*phase)) * intensity,
		float32(math.Sin(0.7*phase)) * intensity * 0.5,
		float32(math.Sin(0.9*phase)) * intensity * 0.3,
	}
	a.applySway(common.Vec3Sub(next, s.SwayOffsets))
	s.SwayOffsets = next
}

// applySway adds a sway delta: spine X, spine Z, then opposite-signed shoulder roll on the upper arms' X.
func (a *animator) applySway(delta [3]float32) {
	if n, ok := a.avatar.Bone(model.BoneSpine); ok {
		e := n.Euler()
		e[0] += delta[0]
		e[2] += delta[1]
		n.SetEuler(e)
	}
	if n, ok := a.avatar.Bone(model.BoneLeftUpperArm); ok {
		e := n.Euler()
		e[0] += delta[2]
		n.SetEuler(e)
	}
	if n, ok := a.avatar.Bone(model.BoneRightUpperArm); ok {
		e := n.Euler()
		e[0] -= delta[2]
		n.SetEuler(e)
	}
}

func (a *animator) Settle() {
	if a.avatar == nil {
		return
	}
	s := &a.state

	if s.SwayOffsets != [3]float32{} {
		a.applySway(common.Vec3Scale(s.SwayOffsets, -1))
		s.SwayOffsets = [3]float32{}
	}
	if n, ok := a.avatar.Bone(model.BoneSpine); ok {
		n.Scale[1] = 1
	}
	if n, ok := a.avatar.Bone(model.BoneChest); ok {
		n.Scale[1] = 1
	}
	s.BreathOutput = 0

	if s.Blink != BlinkIdle {
		s.Blink = BlinkIdle
		s.BlinkProgress = 0
		s.BlinkTimer = 0
		s.BlinkInterval = a.nextBlinkInterval()
	}
	s.BlinkValue = 0
	if em := a.avatar.Expressions(); em != nil {
		em.SetValue(model.ExpressionBlink, 0)
		em.Update()
	}
}
