package profiler

import (
	"log"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"

	"github.com/dustin/go-humanize"
)

// Report is one interval's worth of frame and memory statistics.
type Report struct {
	FPS float64
	// Heap is the live heap in bytes.
	Heap uint64
	// AllocRate is the allocation rate in bytes per second.
	AllocRate float64
	GCCount   uint32
	LastPause time.Duration
	MaxPause  time.Duration
	Sys       uint64
	// Releases counts GPU resources released during the interval.
	Releases      int64
	TotalReleases int64
	// Pending is the disposal backlog at the end of the interval.
	Pending int
}

// Profiler tracks frame rate, memory and GPU release statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	releases     func() int64
	lastReleases int64
	pending      func() int

	last Report
}

// NewProfiler creates a new Profiler.
// The update interval defaults to 1 second and releases are read from gpu.ReleaseCount.
//
// Parameters:
//   - options: functional options for profiler configuration
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		releases:       gpu.ReleaseCount,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastReleases = p.releases()
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs a Report when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
		Heap:    p.memStats.Alloc,
		Sys:     p.memStats.Sys,
		GCCount: p.memStats.NumGC,
	}
	r.AllocRate = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / elapsed.Seconds()

	if r.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		r.LastPause = time.Duration(p.memStats.PauseNs[(r.GCCount-1)%256])
		startIdx := p.lastGCCount
		if r.GCCount-startIdx > 256 {
			startIdx = r.GCCount - 256
		}
		for i := startIdx; i < r.GCCount; i++ {
			r.MaxPause = max(r.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	r.TotalReleases = p.releases()
	r.Releases = r.TotalReleases - p.lastReleases
	if p.pending != nil {
		r.Pending = p.pending()
	}

	log.Printf("[Profiler] FPS: %.2f | Heap: %s | Alloc Rate: %s/s | GC: %d (last: %s, max: %s) | Sys: %s | GPU releases: %d (total %d) | disposal pending: %d",
		r.FPS, humanize.IBytes(r.Heap), humanize.IBytes(uint64(r.AllocRate)), r.GCCount, r.LastPause, r.MaxPause,
		humanize.IBytes(r.Sys), r.Releases, r.TotalReleases, r.Pending)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastReleases = r.TotalReleases
	p.last = r
	return true
}

// Last returns the most recently logged report.
//
// Returns:
//   - Report: the last report, zero before the first interval elapses
func (p *Profiler) Last() Report {
	return p.last
}
