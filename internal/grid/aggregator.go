// Package grid holds the shared pixel grid of a density map session.
//
// An Aggregator owns one State per pixel and is the only writer. Samplers on
// any goroutine hand it Samples through Merge; renderers read copies through
// Snapshot and Pixel. Each pixel has its own mutex, so merges to different
// pixels never contend and a merge holds its lock for O(1) arithmetic.
package grid

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/densitymap/internal/entropy"
	"github.com/gogpu/densitymap/internal/mapping"
)

// Sample is the outcome of scoring one coordinate.
type Sample struct {
	Coord mapping.Coordinate

	// Score is in [entropy.MinScore, entropy.MaxScore] when OK is true.
	Score int

	// OK is false when the window could not be read or scored.
	OK bool
}

// State is the aggregate of every successful sample of one pixel.
// Total is the sum of scores, so the average is exact and does not depend
// on merge order.
type State struct {
	Count uint64
	Total uint64
}

// Known reports whether the pixel has at least one successful sample.
func (s State) Known() bool {
	return s.Count > 0
}

// Average returns the mean score. It reports false for a pixel with no
// successful sample, which has no score.
func (s State) Average() (float64, bool) {
	if s.Count == 0 {
		return 0, false
	}
	return float64(s.Total) / float64(s.Count), true
}

type pixel struct {
	mu    sync.Mutex
	state State
}

// Aggregator is the thread-safe pixel grid.
type Aggregator struct {
	width    int
	height   int
	pixels   []pixel
	coverage *Coverage

	merged   atomic.Uint64
	failures atomic.Uint64
}

// NewAggregator creates an empty width x height grid.
func NewAggregator(width, height int) *Aggregator {
	if width <= 0 || height <= 0 {
		width, height = 0, 0
	}
	return &Aggregator{
		width:    width,
		height:   height,
		pixels:   make([]pixel, width*height),
		coverage: NewCoverage(width * height),
	}
}

// Width returns the grid width.
func (a *Aggregator) Width() int { return a.width }

// Height returns the grid height.
func (a *Aggregator) Height() int { return a.height }

func (a *Aggregator) index(c mapping.Coordinate) int {
	if c.X < 0 || c.X >= a.width || c.Y < 0 || c.Y >= a.height {
		return -1
	}
	return c.Y*a.width + c.X
}

// Merge folds s into its pixel. Failed samples mark the pixel as covered but
// leave its State untouched. Merge reports whether s addressed a pixel of
// the grid.
func (a *Aggregator) Merge(s Sample) bool {
	idx := a.index(s.Coord)
	if idx < 0 {
		return false
	}

	if s.OK && s.Score >= entropy.MinScore && s.Score <= entropy.MaxScore {
		p := &a.pixels[idx]
		p.mu.Lock()
		p.state.Count++
		p.state.Total += uint64(s.Score)
		p.mu.Unlock()
		a.merged.Add(1)
	} else {
		a.failures.Add(1)
	}

	a.coverage.Mark(idx)
	return true
}

// Pixel returns the current state of c.
func (a *Aggregator) Pixel(c mapping.Coordinate) (State, bool) {
	idx := a.index(c)
	if idx < 0 {
		return State{}, false
	}
	p := &a.pixels[idx]
	p.mu.Lock()
	s := p.state
	p.mu.Unlock()
	return s, true
}

// Coverage returns the coverage tracker of the grid.
func (a *Aggregator) Coverage() *Coverage {
	return a.coverage
}

// Merged returns the number of successful samples merged so far.
func (a *Aggregator) Merged() uint64 {
	return a.merged.Load()
}

// Failures returns the number of failed samples seen so far.
func (a *Aggregator) Failures() uint64 {
	return a.failures.Load()
}

// Snapshot copies the grid. Pixels are copied one at a time under their own
// lock, so sampling is never blocked for longer than one pixel copy; the
// result may mix states from before and after concurrent merges.
func (a *Aggregator) Snapshot() *Snapshot {
	states := make([]State, len(a.pixels))
	for i := range a.pixels {
		p := &a.pixels[i]
		p.mu.Lock()
		states[i] = p.state
		p.mu.Unlock()
	}
	return &Snapshot{width: a.width, height: a.height, states: states}
}

// Snapshot is an immutable copy of the grid.
type Snapshot struct {
	width  int
	height int
	states []State
}

// Width returns the snapshot width.
func (s *Snapshot) Width() int { return s.width }

// Height returns the snapshot height.
func (s *Snapshot) Height() int { return s.height }

// At returns the state at (x, y), or the zero State outside the grid.
func (s *Snapshot) At(x, y int) State {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return State{}
	}
	return s.states[y*s.width+x]
}

// Known returns the number of pixels with at least one successful sample.
func (s *Snapshot) Known() int {
	n := 0
	for _, st := range s.states {
		if st.Known() {
			n++
		}
	}
	return n
}
