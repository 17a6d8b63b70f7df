// Package profiler - Wall-clock tracking for the frame pipeline. The
// per-frame budget is advisory: exceeding it is logged, never enforced as
// a deadline, and no frame is cancelled because of it.
package profiler

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// TimeTracker accumulates timing statistics for one named stage.
type TimeTracker struct {
	Count int           `json:"count"`
	Total time.Duration `json:"total"`
	Max   time.Duration `json:"max"`
	Last  time.Duration `json:"last"`
}

// Average returns the mean duration per invocation.
func (t *TimeTracker) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// FrameProfiler measures pipeline stages and frame totals against a soft
// real-time budget. Thread-safe; instance workers record stage timings
// concurrently.
type FrameProfiler struct {
	mu sync.Mutex

	// Budget is the soft per-frame budget; zero disables budget logging.
	Budget time.Duration

	stages      map[string]*TimeTracker
	frames      int
	overBudget  int
	frameTotals time.Duration
}

// NewFrameProfiler returns a profiler with the given soft budget.
func NewFrameProfiler(budget time.Duration) *FrameProfiler {
	return &FrameProfiler{
		Budget: budget,
		stages: make(map[string]*TimeTracker),
	}
}

// Track times one stage; call the returned func when the stage ends.
//
// @example
// defer p.Track("segmentation")()
func (p *FrameProfiler) Track(stage string) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		tracker, ok := p.stages[stage]
		if !ok {
			tracker = &TimeTracker{}
			p.stages[stage] = tracker
		}
		tracker.Count++
		tracker.Total += elapsed
		tracker.Last = elapsed
		if elapsed > tracker.Max {
			tracker.Max = elapsed
		}
	}
}

// EndFrame records a completed frame's total duration and logs when the
// soft budget was exceeded.
func (p *FrameProfiler) EndFrame(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	p.frameTotals += elapsed
	if p.Budget > 0 && elapsed > p.Budget {
		p.overBudget++
		log.Printf("profiler: frame took %v, over the %v budget (%d of %d frames over)",
			elapsed.Truncate(time.Microsecond), p.Budget, p.overBudget, p.frames)
	}
}

// Report formats per-stage statistics for periodic logging.
func (p *FrameProfiler) Report() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.stages))
	for name := range p.stages {
		names = append(names, name)
	}
	sort.Strings(names)

	out := fmt.Sprintf("frames=%d over_budget=%d", p.frames, p.overBudget)
	if p.frames > 0 {
		out += fmt.Sprintf(" avg_frame=%v", (p.frameTotals / time.Duration(p.frames)).Truncate(time.Microsecond))
	}
	for _, name := range names {
		t := p.stages[name]
		out += fmt.Sprintf(" %s{n=%d avg=%v max=%v}",
			name, t.Count, t.Average().Truncate(time.Microsecond), t.Max.Truncate(time.Microsecond))
	}
	return out
}
