package densitymap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/densitymap/internal/sampler"
)

// Default grid dimensions, half the resolution of an 800x80 strip.
const (
	DefaultWidth  = 400
	DefaultHeight = 40
)

// Grid and window limits.
const (
	// MaxDimension bounds each grid dimension.
	MaxDimension = 16384

	// DefaultWindow is the number of bytes read per sample.
	DefaultWindow = sampler.DefaultWindow

	// MaxWindow is the largest supported window.
	MaxWindow = sampler.MaxWindow
)

// Option configures a Session.
// Use functional options to customize sampling behavior.
//
// Example:
//
//	// Defaults: 400x40 grid, 8-byte windows, one worker per CPU
//	s, err := densitymap.Start(ctx, "disk.img")
//
//	// Export-sized grid, three passes, then stop
//	s, err := densitymap.Start(ctx, "disk.img",
//	    densitymap.WithGrid(1920, 1080),
//	    densitymap.WithMaxPasses(3))
type Option func(*options)

// options holds optional configuration for Session creation.
type options struct {
	width        int
	height       int
	window       int
	workers      int
	maxPasses    int
	refineDelay  time.Duration
	cpuThreshold float64
	seed         uint64
	seeded       bool
	logger       *slog.Logger
}

// defaultOptions returns the default session options.
func defaultOptions() options {
	return options{
		width:  DefaultWidth,
		height: DefaultHeight,
		window: DefaultWindow,
	}
}

func (o *options) validate() error {
	if o.width < 1 || o.height < 1 || o.width > MaxDimension || o.height > MaxDimension {
		return fmt.Errorf("%w: grid %dx%d outside 1..%d", ErrInvalidOptions, o.width, o.height, MaxDimension)
	}
	if o.window < 1 || o.window > MaxWindow {
		return fmt.Errorf("%w: window %d outside 1..%d", ErrInvalidOptions, o.window, MaxWindow)
	}
	if o.maxPasses < 0 {
		return fmt.Errorf("%w: negative pass limit %d", ErrInvalidOptions, o.maxPasses)
	}
	if o.refineDelay < 0 {
		return fmt.Errorf("%w: negative refine delay %v", ErrInvalidOptions, o.refineDelay)
	}
	if o.cpuThreshold < 0 || o.cpuThreshold > 100 {
		return fmt.Errorf("%w: CPU threshold %v outside 0..100", ErrInvalidOptions, o.cpuThreshold)
	}
	return nil
}

// WithGrid sets the logical grid to width x height pixels.
func WithGrid(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithWindow sets the number of bytes read and scored per sample.
// Windows shorter than 8 bytes cannot reach every score level.
func WithWindow(n int) Option {
	return func(o *options) {
		o.window = n
	}
}

// WithWorkers sets the number of sampling goroutines.
// Zero or negative selects one worker per logical CPU.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMaxPasses stops the session after n complete passes over the grid,
// the initial pass included. Zero means refine until canceled.
func WithMaxPasses(n int) Option {
	return func(o *options) {
		o.maxPasses = n
	}
}

// WithRefineDelay inserts a pause of d between refinement passes.
func WithRefineDelay(d time.Duration) Option {
	return func(o *options) {
		o.refineDelay = d
	}
}

// WithCPUThrottle holds off each refinement pass while host CPU
// utilisation is at or above pct percent. Zero disables the throttle.
// The initial pass is never throttled.
func WithCPUThrottle(pct float64) Option {
	return func(o *options) {
		o.cpuThreshold = pct
	}
}

// WithSeed makes shuffles and window jitter reproducible.
// Sample order across workers still depends on scheduling.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithLogger sets the logger of the session, overriding the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
