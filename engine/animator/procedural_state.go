package animator

// BlinkPhase is the sub-state of the blink cycle.
type BlinkPhase int

const (
	BlinkIdle BlinkPhase = iota
	BlinkRising
	BlinkFalling
)

// String returns the phase name.
func (p BlinkPhase) String() string {
	switch p {
	case BlinkRising:
		return "rising"
	case BlinkFalling:
		return "falling"
	default:
		return "idle"
	}
}

// ProceduralState is the per-avatar procedural animation record. It is reset whenever an avatar is bound.
type ProceduralState struct {
	// BlinkTimer accumulates idle time since the last blink ended.
	BlinkTimer float32

	// BlinkInterval is the idle time that triggers the next blink.
	BlinkInterval float32

	Blink         BlinkPhase
	BlinkProgress float32
	BlinkValue    float32

	// BreathPhase is the accumulated breathing phase in radians.
	BreathPhase  float32
	BreathOutput float32

	IdlePhase float32

	// SwayOffsets are the spine X, spine Z and shoulder roll offsets applied on the previous tick.
	SwayOffsets [3]float32
}

// Settings configures the procedural subsystems. Durations are in seconds.
type Settings struct {
	Blink      bool
	Breathing  bool
	IdleMotion bool
	SpringBone bool

	BlinkIntervalMin float32
	BlinkIntervalMax float32
	BlinkDuration    float32

	BreathSpeed     float32
	BreathIntensity float32

	IdleSpeed     float32
	IdleIntensity float32
}

// DefaultSettings returns every subsystem enabled with the default timings.
//
// Returns:
//   - Settings: the default settings
func DefaultSettings() Settings {
	return Settings{
		Blink:            true,
		Breathing:        true,
		IdleMotion:       true,
		SpringBone:       true,
		BlinkIntervalMin: 2.0,
		BlinkIntervalMax: 6.0,
		BlinkDuration:    0.15,
		BreathSpeed:      0.8,
		BreathIntensity:  0.02,
		IdleSpeed:        0.5,
		IdleIntensity:    0.01,
	}
}
