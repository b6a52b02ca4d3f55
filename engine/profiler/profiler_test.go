package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_TickReportsWindow(t *testing.T) {
	// --- Arrange ---
	now := time.Unix(0, 0)
	p := NewProfiler()
	p.SetClock(func() time.Time { return now })
	var lines []string
	p.SetLogger(func(format string, args ...any) { lines = append(lines, format) })

	// --- Act ---
	var reported bool
	var stats Stats
	for i := 0; i < 4; i++ {
		now = now.Add(250 * time.Millisecond)
		p.RecordFrame(time.Duration(i+1) * time.Millisecond)
		if i == 1 {
			p.RecordResize()
			p.RecordShadowFlush()
		}
		stats, reported = p.Tick()
	}

	// --- Assert ---
	require.True(t, reported)
	assert.Len(t, lines, 1)
	assert.InDelta(t, 4.0, stats.FPS, 1e-9)
	assert.Equal(t, 2500*time.Microsecond, stats.AvgFrameTime)
	assert.Equal(t, 4*time.Millisecond, stats.MaxFrameTime)
	assert.Equal(t, 1, stats.Resizes)
	assert.Equal(t, 1, stats.ShadowFlush)
}

func TestProfiler_ResetsAfterReport(t *testing.T) {
	// --- Arrange ---
	now := time.Unix(0, 0)
	p := NewProfiler()
	p.SetClock(func() time.Time { return now })
	p.SetLogger(func(string, ...any) {})
	p.RecordResize()
	now = now.Add(time.Second)
	_, first := p.Tick()

	// --- Act ---
	now = now.Add(100 * time.Millisecond)
	_, second := p.Tick()
	now = now.Add(time.Second)
	stats, third := p.Tick()

	// --- Assert ---
	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, third)
	assert.Equal(t, 0, stats.Resizes)
}
