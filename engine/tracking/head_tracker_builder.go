package tracking

import "time"

// HeadTrackerBuilderOption is a functional option for configuring a HeadTracker.
type HeadTrackerBuilderOption func(*HeadTracker)

// WithPollInterval sets how often the cursor is sampled. Values <= 0 keep the default of 10ms.
//
// Parameters:
//   - interval: the sampling period
//
// Returns:
//   - HeadTrackerBuilderOption: option function to apply
func WithPollInterval(interval time.Duration) HeadTrackerBuilderOption {
	return func(t *HeadTracker) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// WithMaxAngle bounds the head pitch and yaw. Values <= 0 keep the default of π/4.
func WithMaxAngle(angle float64) HeadTrackerBuilderOption {
	return func(t *HeadTracker) {
		if angle > 0 {
			t.maxAngle = angle
		}
	}
}
