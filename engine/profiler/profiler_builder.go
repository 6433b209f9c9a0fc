package profiler

import "time"

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often Tick logs a report. Zero logs on every tick.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d >= 0 {
			p.updateInterval = d
		}
	}
}

// WithReleaseCounter replaces the source of the cumulative GPU release count.
//
// Parameters:
//   - fn: returns the number of resources released so far
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithReleaseCounter(fn func() int64) ProfilerBuilderOption {
	return func(p *Profiler) {
		if fn != nil {
			p.releases = fn
		}
	}
}

// WithPendingCounter reports the disposal backlog alongside each report.
//
// Parameters:
//   - fn: returns the number of resources still waiting for release
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithPendingCounter(fn func() int) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.pending = fn
	}
}
