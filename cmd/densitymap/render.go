package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/gogpu/densitymap"
)

// output holds the image flags shared by render and export.
type output struct {
	path   string
	scale  string
	legend bool
	blend  string
}

func addOutputFlags(fs *flag.FlagSet) *output {
	o := &output{}
	fs.StringVar(&o.path, "o", "density.png", "output PNG path")
	fs.StringVar(&o.scale, "scale", "", "resize the image to WIDTHxHEIGHT")
	fs.BoolVar(&o.legend, "legend", false, "append a color legend")
	fs.StringVar(&o.blend, "blend", "rgb", "gradient color space: rgb, linear, lab, hcl")
	return o
}

// gradient returns the default colors blended as -blend asks.
func (o *output) gradient() (densitymap.Gradient, error) {
	b, err := densitymap.ParseBlend(o.blend)
	if err != nil {
		return densitymap.Gradient{}, err
	}
	g := densitymap.DefaultGradient
	g.Blend = b
	return g, nil
}

// finish scales, labels and saves pm.
func (o *output) finish(pm *densitymap.Pixmap, g densitymap.Gradient) (*densitymap.Pixmap, error) {
	var err error
	if o.scale != "" {
		w, h, perr := parseSize(o.scale)
		if perr != nil {
			return nil, fmt.Errorf("%w: -scale: %w", densitymap.ErrInvalidOptions, perr)
		}
		if pm, err = pm.Scale(w, h); err != nil {
			return nil, err
		}
	}
	if o.legend {
		if pm, err = pm.WithLegend(g); err != nil {
			return nil, err
		}
	}
	return pm, pm.SavePNG(o.path)
}

func (c *cli) cmdRender(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	sf, err := c.addSamplingFlags(fs, densitymap.DefaultWidth, densitymap.DefaultHeight)
	if err != nil {
		return c.fail(fmt.Errorf("%w: %w", densitymap.ErrInvalidOptions, err))
	}
	out := addOutputFlags(fs)
	refine := fs.Duration("refine", 0, "keep refining for this long after the initial pass")
	throttle := fs.Float64("throttle", 0, "pause refinement while host CPU is above this percent")
	progress := fs.Bool("progress", false, "report initial pass progress on stderr")
	if !c.parseFlags(fs, args) {
		return ExitUsage
	}
	if fs.NArg() != 1 {
		return c.usageError("usage: densitymap render [flags] <file>")
	}
	if *refine < 0 {
		return c.usageError("error: -refine must not be negative")
	}
	if err := c.setupLogging(sf.verbose); err != nil {
		return c.fail(fmt.Errorf("%w: %w", densitymap.ErrInvalidOptions, err))
	}

	g, err := out.gradient()
	if err != nil {
		return c.fail(err)
	}
	opts := append(sf.options(), densitymap.WithCPUThrottle(*throttle))
	if *refine == 0 {
		opts = append(opts, densitymap.WithMaxPasses(1))
	}

	start := time.Now()
	s, err := densitymap.Start(ctx, fs.Arg(0), opts...)
	if err != nil {
		return c.fail(err)
	}
	defer s.Cancel()

	if *progress {
		stop := c.reportProgress(s)
		defer stop()
	}

	if err := s.WaitInitialPass(ctx); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return c.fail(interrupted(err))
	}
	if *refine > 0 {
		t := time.NewTimer(*refine)
		select {
		case <-ctx.Done():
			t.Stop()
			return c.fail(interrupted(ctx.Err()))
		case <-t.C:
		}
		s.Pause()
	}

	snap, err := s.Snapshot()
	if err != nil {
		return c.fail(err)
	}
	p := s.Progress()
	pm, err := out.finish(snap.Image(g), g)
	if err != nil {
		return c.fail(err)
	}

	fmt.Fprint(c.stdout, printer.Sprintf("wrote %s (%dx%d, %d of %d pixels known, %d samples, %d passes, %v)\n",
		out.path, pm.Width(), pm.Height(), snap.Known(), p.Total, p.Merged, p.Passes,
		time.Since(start).Round(time.Millisecond)))
	return ExitOK
}

// reportProgress prints the initial pass percentage on stderr until the
// pass completes or the returned stop is called.
func (c *cli) reportProgress(s *densitymap.Session) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-s.Done():
				return
			case <-ticker.C:
				p := s.Progress()
				fmt.Fprint(c.stderr, printer.Sprintf("\rsampling: %5.1f%% (%d/%d)", p.Percent(), p.Covered, p.Total))
				if p.State != densitymap.StateInitialPass {
					fmt.Fprintln(c.stderr)
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// errInterrupted marks runs stopped by a signal.
var errInterrupted = errors.New("interrupted")

func interrupted(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", errInterrupted, err)
	}
	return err
}
