package profiler

import (
	"fmt"
	"log"
	"runtime"
	"time"
)

// Profiler tracks frame rate, frame time, memory and render-loop side effects for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	frameTime    time.Duration
	maxFrameTime time.Duration
	resizes      int
	shadowFlush  int
	now          func() time.Time
	logf         func(format string, args ...any)
}

// Stats is one reporting window's worth of measurements.
type Stats struct {
	FPS          float64
	AvgFrameTime time.Duration
	MaxFrameTime time.Duration
	Resizes      int
	ShadowFlush  int
}

// String formats the frame statistics the way they are logged.
func (s Stats) String() string {
	return fmt.Sprintf("FPS: %.2f | Frame: %s avg, %s max | Resizes: %d | Shadow flushes: %d",
		s.FPS, s.AvgFrameTime, s.MaxFrameTime, s.Resizes, s.ShadowFlush)
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		now:            time.Now,
		logf:           log.Printf,
	}
}

// SetClock replaces the time source and restarts the reporting window.
//
// Parameters:
//   - now: the clock to read
func (p *Profiler) SetClock(now func() time.Time) {
	p.now = now
	p.lastTime = now()
}

// SetLogger replaces the log sink.
func (p *Profiler) SetLogger(logf func(format string, args ...any)) {
	p.logf = logf
}

// RecordFrame adds one frame's duration to the current window.
func (p *Profiler) RecordFrame(d time.Duration) {
	p.frameTime += d
	if d > p.maxFrameTime {
		p.maxFrameTime = d
	}
}

// RecordResize counts a host-surface resize.
func (p *Profiler) RecordResize() {
	p.resizes++
}

// RecordShadowFlush counts a debounced shadow refresh reaching the surface.
func (p *Profiler) RecordShadowFlush() {
	p.shadowFlush++
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, frame time, resize and shadow flush counts, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - Stats: the reported window, zero when nothing was logged
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() (Stats, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return Stats{}, false
	}

	stats := Stats{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		AvgFrameTime: p.frameTime / time.Duration(p.frameCount),
		MaxFrameTime: p.maxFrameTime,
		Resizes:      p.resizes,
		ShadowFlush:  p.shadowFlush,
	}

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.logf("[Profiler] %s | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		stats, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.frameTime = 0
	p.maxFrameTime = 0
	p.resizes = 0
	p.shadowFlush = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}
