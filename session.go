package densitymap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/densitymap/internal/grid"
	"github.com/gogpu/densitymap/internal/mapping"
	"github.com/gogpu/densitymap/internal/parallel"
	"github.com/gogpu/densitymap/internal/sampler"
	"github.com/gogpu/densitymap/internal/source"
)

// State is the lifecycle state of a Session.
type State int32

const (
	// StateIdle is the state of a session that has not started sampling.
	StateIdle State = iota

	// StateInitialPass is the first pass, which visits every pixel once.
	StateInitialPass

	// StateRefining repeats full passes in fresh random orders.
	StateRefining

	// StateStopped is terminal. The session was canceled or reached its
	// pass limit.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateInitialPass:
		return "InitialPass"
	case StateRefining:
		return "Refining"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// idleBackoff is the minimum pause after a pass that merged nothing, such
// as a pass over an empty file.
const idleBackoff = 50 * time.Millisecond

// Session samples one file into a pixel grid.
//
// The initial pass visits every pixel exactly once in a random order split
// across the workers. After it, the session refines: every pass reshuffles
// the whole grid and samples each pixel again at a new position inside its
// region, so pixel averages converge over time. Refinement runs until
// Cancel, the Start context ending, or WithMaxPasses.
//
// All methods are safe for concurrent use. Cancel must be called to
// release the file handle.
type Session struct {
	path     string
	opts     options
	log      *slog.Logger
	src      *source.File
	pool     *parallel.WorkerPool
	throttle *parallel.Throttle
	gate     sampler.Gate
	coords   []mapping.Coordinate

	grid      atomic.Pointer[grid.Aggregator]
	size      atomic.Int64
	state     atomic.Int32
	passes    atomic.Int64
	discarded atomic.Uint64

	// shuffle and jitter are used only by the run goroutine. jitter holds
	// one source per worker chunk.
	shuffle *rand.Rand
	jitter  []*rand.Rand

	peekMu   sync.Mutex
	peekRand *rand.Rand

	cancel      context.CancelFunc
	cancelOnce  sync.Once
	initialDone chan struct{}
	done        chan struct{}
}

// Start opens path and begins sampling it in the background. It returns
// once the file is open; sampling continues until Cancel is called, ctx
// ends, or the pass limit is reached.
//
// Start fails with ErrSourceUnavailable when the file cannot be opened and
// with ErrInvalidOptions for out-of-range options. No session exists then.
func Start(ctx context.Context, path string, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	src, err := source.Open(path)
	if err != nil {
		return nil, fmt.Errorf("densitymap: start %s: %w", path, err)
	}
	size, err := src.Size()
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("densitymap: start %s: %w", path, err)
	}

	log := o.logger
	if log == nil {
		log = Logger()
	}

	s := &Session{
		path:        src.Path(),
		opts:        o,
		log:         log,
		src:         src,
		pool:        parallel.NewWorkerPool(o.workers),
		coords:      mapping.Coordinates(o.width, o.height),
		initialDone: make(chan struct{}),
		done:        make(chan struct{}),
	}
	if o.cpuThreshold > 0 {
		s.throttle = parallel.NewThrottle(o.cpuThreshold)
	}

	workers := s.pool.Workers()
	s.shuffle = s.newRand(0)
	s.jitter = make([]*rand.Rand, workers)
	for i := range s.jitter {
		s.jitter[i] = s.newRand(uint64(i) + 1)
	}
	s.peekRand = s.newRand(uint64(workers) + 1)

	s.size.Store(size)
	s.grid.Store(grid.NewAggregator(o.width, o.height))
	s.state.Store(int32(StateInitialPass))

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.log.Info("densitymap: session started",
		"path", s.path,
		"size", size,
		"width", o.width,
		"height", o.height,
		"window", o.window,
		"workers", workers)

	go s.run(runCtx)
	return s, nil
}

// newRand returns the random source for stream. Seeded sessions derive
// every stream from the seed.
func (s *Session) newRand(stream uint64) *rand.Rand {
	if s.opts.seeded {
		return rand.New(rand.NewPCG(s.opts.seed, stream)) //nolint:gosec // sampling positions, not secrets
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // sampling positions, not secrets
}

// run is the refinement coordinator. It owns the pass loop and returns when
// the context ends or the pass limit is reached.
func (s *Session) run(ctx context.Context) {
	defer s.finish()

	agg := s.grid.Load()
	idle := false

	for pass := 1; ; pass++ {
		if pass > 1 {
			if err := s.betweenPasses(ctx, idle); err != nil {
				return
			}
		}

		m := s.refreshMapper()
		before := agg.Merged()
		if err := s.runPass(ctx, agg, m); err != nil {
			s.log.Debug("densitymap: pass interrupted", "path", s.path, "pass", pass)
			return
		}
		s.passes.Store(int64(pass))
		idle = agg.Merged() == before

		s.log.Debug("densitymap: pass complete",
			"path", s.path,
			"pass", pass,
			"merged", agg.Merged(),
			"failures", agg.Failures())

		if pass == 1 {
			if !agg.Coverage().Full() {
				return
			}
			s.state.Store(int32(StateRefining))
			close(s.initialDone)
			s.log.Info("densitymap: initial pass complete",
				"path", s.path,
				"known", agg.Merged(),
				"failures", agg.Failures())
		}

		if s.opts.maxPasses > 0 && pass >= s.opts.maxPasses {
			return
		}
	}
}

// betweenPasses applies the refine delay, the CPU throttle and the pause
// gate before a refinement pass.
func (s *Session) betweenPasses(ctx context.Context, idle bool) error {
	delay := s.opts.refineDelay
	if idle {
		delay = max(delay, idleBackoff)
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := s.throttle.Wait(ctx); err != nil {
		return err
	}
	return s.gate.Wait(ctx)
}

// refreshMapper re-stats the file and returns a mapper for its current size.
// A failed stat keeps the previous size.
func (s *Session) refreshMapper() mapping.Mapper {
	prev := s.size.Load()
	size, err := s.src.Size()
	switch {
	case err != nil:
		s.log.Warn("densitymap: stat failed, keeping previous size", "path", s.path, "err", err)
	case size != prev:
		s.log.Debug("densitymap: file size changed", "path", s.path, "from", prev, "to", size)
		s.size.Store(size)
	}
	return s.mapper()
}

// mapper returns a mapper for the last known file size.
func (s *Session) mapper() mapping.Mapper {
	return mapping.New(s.opts.width, s.opts.height, s.size.Load())
}

// runPass samples every coordinate once. The grid is reshuffled and split
// into one chunk per worker; each chunk gets its own sampler.
func (s *Session) runPass(ctx context.Context, agg *grid.Aggregator, m mapping.Mapper) error {
	chunks := parallel.Partition(s.coords, len(s.jitter), s.shuffle)
	tasks := make([]parallel.Task, len(chunks))
	for i, chunk := range chunks {
		smp := sampler.New(s.src, m, sampler.Options{
			Window: s.opts.window,
			Rand:   s.jitter[i],
			Gate:   &s.gate,
		})
		tasks[i] = func(ctx context.Context) {
			res := smp.Run(ctx, chunk, func(sample grid.Sample) {
				agg.Merge(sample)
			})
			if res.Discarded > 0 {
				s.discarded.Add(uint64(res.Discarded))
			}
		}
	}
	return s.pool.ExecuteAll(ctx, tasks)
}

// finish runs on the coordinator goroutine after the last pass.
func (s *Session) finish() {
	s.pool.Close()
	s.state.Store(int32(StateStopped))
	s.log.Info("densitymap: session stopped", "path", s.path, "passes", s.passes.Load())
	close(s.done)
}

// Cancel stops sampling, waits for the coordinator and every worker to
// return, closes the file and discards the grid. No sample is merged after
// Cancel returns. Cancel is safe to call more than once and from several
// goroutines; every call returns only after the session has stopped.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		s.cancel()
		<-s.done
		s.grid.Store(nil)
		if err := s.src.Close(); err != nil {
			s.log.Warn("densitymap: close failed", "path", s.path, "err", err)
		}
	})
}

// Path returns the cleaned path of the target file.
func (s *Session) Path() string {
	return s.path
}

// Grid returns the logical grid dimensions.
func (s *Session) Grid() (width, height int) {
	return s.opts.width, s.opts.height
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed when sampling has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until sampling stops or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitInitialPass blocks until every pixel has been visited once. It
// returns ErrSessionClosed if the session stopped before that.
func (s *Session) WaitInitialPass(ctx context.Context) error {
	select {
	case <-s.initialDone:
		return nil
	case <-s.done:
		select {
		case <-s.initialDone:
			return nil
		default:
			return ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause holds every sampler before its next read. Reads already in flight
// complete and are merged.
func (s *Session) Pause() {
	s.gate.Pause()
	s.log.Debug("densitymap: paused", "path", s.path)
}

// Resume releases samplers held by Pause.
func (s *Session) Resume() {
	s.gate.Resume()
	s.log.Debug("densitymap: resumed", "path", s.path)
}

// Paused reports whether the session is paused.
func (s *Session) Paused() bool {
	return s.gate.Paused()
}

// Snapshot returns a copy of the pixel grid. It never blocks sampling for
// longer than one pixel copy. After Cancel it returns ErrSessionClosed.
func (s *Session) Snapshot() (*Snapshot, error) {
	agg := s.grid.Load()
	if agg == nil {
		return nil, ErrSessionClosed
	}
	return &Snapshot{g: agg.Snapshot()}, nil
}

// PixelDetail describes one pixel for inspection.
type PixelDetail struct {
	Coord Coordinate

	// Region is the byte range the pixel covers in the file at its last
	// known size. It is empty for an empty file.
	Region Region

	// PixelState holds the sample count and score total. A pixel with no
	// successful sample is unknown.
	PixelState
}

// PixelDetail returns the current state and byte region of c.
func (s *Session) PixelDetail(c Coordinate) (PixelDetail, error) {
	agg := s.grid.Load()
	if agg == nil {
		return PixelDetail{}, ErrSessionClosed
	}
	st, ok := agg.Pixel(c)
	if !ok {
		return PixelDetail{}, s.outOfBounds(c)
	}
	d := PixelDetail{Coord: c, PixelState: st}
	d.Region, _ = s.mapper().Region(c)
	return d, nil
}

// Peek reads one fresh window of the region of c, at a random position
// like a refinement sample. The bytes are returned as read, unscored.
func (s *Session) Peek(c Coordinate) ([]byte, Region, error) {
	if s.grid.Load() == nil {
		return nil, Region{}, ErrSessionClosed
	}
	m := s.mapper()
	if !m.Contains(c) {
		return nil, Region{}, s.outOfBounds(c)
	}

	s.peekMu.Lock()
	defer s.peekMu.Unlock()

	smp := sampler.New(s.src, m, sampler.Options{Window: s.opts.window, Rand: s.peekRand})
	p, w, err := smp.Read(c)
	if err != nil {
		if errors.Is(err, source.ErrClosed) {
			return nil, Region{}, ErrSessionClosed
		}
		return nil, w, fmt.Errorf("densitymap: peek (%d, %d): %w", c.X, c.Y, err)
	}
	return p, w, nil
}

func (s *Session) outOfBounds(c Coordinate) error {
	return fmt.Errorf("%w: (%d, %d) in %dx%d grid", ErrOutOfBounds, c.X, c.Y, s.opts.width, s.opts.height)
}

// Progress is a point-in-time summary of a session.
type Progress struct {
	State State

	// Passes is the number of completed passes, the initial one included.
	Passes int

	// Covered is the number of pixels visited at least once, out of Total.
	Covered int
	Total   int

	// Merged counts successful samples, Failures unreadable ones.
	Merged   uint64
	Failures uint64

	// Discarded counts samples dropped because their read finished after
	// cancellation.
	Discarded uint64
}

// Percent returns initial pass progress in [0, 100].
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return 100 * float64(p.Covered) / float64(p.Total)
}

// Progress returns current counters. After Cancel only State, Passes and
// Discarded are reported.
func (s *Session) Progress() Progress {
	p := Progress{
		State:     s.State(),
		Passes:    int(s.passes.Load()),
		Discarded: s.discarded.Load(),
	}
	if agg := s.grid.Load(); agg != nil {
		cov := agg.Coverage()
		p.Covered = cov.Covered()
		p.Total = cov.Total()
		p.Merged = agg.Merged()
		p.Failures = agg.Failures()
	}
	return p
}
