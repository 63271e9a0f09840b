// Package sampler reads and scores the windows of a set of coordinates.
//
// A Sampler is single-goroutine: each worker of a pass gets its own, with
// its own read buffer and random source. Samples are handed to the emit
// callback one at a time as soon as they are scored.
package sampler

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"

	"github.com/gogpu/densitymap/internal/entropy"
	"github.com/gogpu/densitymap/internal/grid"
	"github.com/gogpu/densitymap/internal/mapping"
)

// DefaultWindow is the number of bytes read per sample.
const DefaultWindow = 8

// MaxWindow is the largest supported window.
const MaxWindow = 64

// ErrNoRegion is returned for coordinates of an empty file or outside the grid.
var ErrNoRegion = errors.New("sampler: coordinate has no region")

// Options configures a Sampler.
type Options struct {
	// Window is the number of bytes read per sample. Zero means DefaultWindow.
	Window int

	// Rand jitters window placement inside each region. Nil disables
	// jitter, so every pass reads the first window of each region.
	Rand *rand.Rand

	// Gate, if set, is waited on before every read.
	Gate *Gate
}

// Sampler scores coordinates against one byte source.
type Sampler struct {
	src    io.ReaderAt
	mapper mapping.Mapper
	rng    *rand.Rand
	gate   *Gate
	window int
	buf    []byte
}

// New creates a sampler over src laid out by m.
func New(src io.ReaderAt, m mapping.Mapper, opts Options) *Sampler {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	window = min(window, MaxWindow)
	return &Sampler{
		src:    src,
		mapper: m,
		rng:    opts.Rand,
		gate:   opts.Gate,
		window: window,
		buf:    make([]byte, window),
	}
}

func (s *Sampler) jitter(n int64) int64 {
	return s.rng.Int64N(n)
}

// Window returns the byte range the next sample of c would read.
// It returns false when c has no region.
func (s *Sampler) Window(c mapping.Coordinate) (mapping.Region, bool) {
	r, ok := s.mapper.Region(c)
	if !ok {
		return mapping.Region{}, false
	}
	if s.rng == nil {
		return s.mapper.Window(r, s.window, nil), true
	}
	return s.mapper.Window(r, s.window, s.jitter), true
}

// Read returns a fresh copy of the bytes of one window of c.
func (s *Sampler) Read(c mapping.Coordinate) ([]byte, mapping.Region, error) {
	w, ok := s.Window(c)
	if !ok {
		return nil, mapping.Region{}, ErrNoRegion
	}
	p := make([]byte, w.Length)
	n, err := s.src.ReadAt(p, w.Offset)
	if n == len(p) && (err == nil || errors.Is(err, io.EOF)) {
		return p, w, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return p[:n], w, err
}

// Sample reads and scores one window of c. Read errors, short reads and
// coordinates without a region yield a failed Sample.
func (s *Sampler) Sample(c mapping.Coordinate) grid.Sample {
	fail := grid.Sample{Coord: c}

	w, ok := s.Window(c)
	if !ok {
		return fail
	}

	p := s.buf[:w.Length]
	n, err := s.src.ReadAt(p, w.Offset)
	if n != len(p) || (err != nil && !errors.Is(err, io.EOF)) {
		return fail
	}

	score, ok := entropy.Score(p)
	if !ok {
		return fail
	}
	return grid.Sample{Coord: c, Score: score, OK: true}
}

// Result summarises one Run.
type Result struct {
	// Emitted counts samples handed to emit, successful or failed.
	Emitted int

	// Failed counts emitted samples that carry no score.
	Failed int

	// Discarded counts samples whose read finished after cancellation.
	Discarded int
}

// Run samples coords in order, handing each Sample to emit. It stops before
// the next read once ctx is done, and drops a sample whose read finished
// after cancellation instead of emitting it.
func (s *Sampler) Run(ctx context.Context, coords []mapping.Coordinate, emit func(grid.Sample)) Result {
	var res Result
	for _, c := range coords {
		if ctx.Err() != nil {
			return res
		}
		if s.gate != nil {
			if err := s.gate.Wait(ctx); err != nil {
				return res
			}
		}

		smp := s.Sample(c)
		if ctx.Err() != nil {
			res.Discarded++
			return res
		}

		emit(smp)
		res.Emitted++
		if !smp.OK {
			res.Failed++
		}
	}
	return res
}
