package animator

import "github.com/Carmen-Shannon/deskvrm/engine/model"

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithSettings replaces every procedural setting at once.
//
// Parameters:
//   - s: the settings to apply
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the settings to an animator
func WithSettings(s Settings) AnimatorBuilderOption {
	return func(a *animator) {
		a.settings = s
	}
}

// WithBlink toggles the blink subsystem.
func WithBlink(enabled bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.settings.Blink = enabled
	}
}

// WithBlinkTiming sets the random blink interval range and the blink duration, in seconds.
//
// Parameters:
//   - intervalMin: the shortest idle time between blinks
//   - intervalMax: the longest idle time between blinks
//   - duration: the length of one blink
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the blink timing to an animator
func WithBlinkTiming(intervalMin, intervalMax, duration float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.settings.BlinkIntervalMin = intervalMin
		a.settings.BlinkIntervalMax = intervalMax
		a.settings.BlinkDuration = duration
	}
}

// WithBreathing toggles the breathing subsystem.
func WithBreathing(enabled bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.settings.Breathing = enabled
	}
}

// WithBreathingMotion sets the breathing speed (cycles per second) and scale intensity.
func WithBreathingMotion(speed, intensity float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.settings.BreathSpeed = speed
		a.settings.BreathIntensity = intensity
	}
}

// WithIdleMotion toggles the idle sway subsystem.
func WithIdleMotion(enabled bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.settings.IdleMotion = enabled
	}
}

// WithIdleSway sets the idle sway phase speed and rotational intensity.
func WithIdleSway(speed, intensity float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.settings.IdleSpeed = speed
		a.settings.IdleIntensity = intensity
	}
}

// WithSpringBone toggles the secondary-bone physics subsystem.
func WithSpringBone(enabled bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.settings.SpringBone = enabled
	}
}

// WithRandom injects the random source used to draw blink intervals.
//
// Parameters:
//   - r: the random source
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the random source to an animator
func WithRandom(r RandomSource) AnimatorBuilderOption {
	return func(a *animator) {
		if r != nil {
			a.random = r
		}
	}
}

// WithAvatar binds an avatar during construction.
func WithAvatar(avatar *model.Avatar) AnimatorBuilderOption {
	return func(a *animator) {
		a.avatar = avatar
	}
}
