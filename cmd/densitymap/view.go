package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/encoding"

	"github.com/gogpu/densitymap"
	"github.com/gogpu/densitymap/internal/view"
)

func (c *cli) cmdView(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	sf, err := c.addSamplingFlags(fs, densitymap.DefaultWidth, densitymap.DefaultHeight)
	if err != nil {
		return c.fail(fmt.Errorf("%w: %w", densitymap.ErrInvalidOptions, err))
	}
	fps := fs.Int("fps", 10, "redraws per second")
	throttle := fs.Float64("throttle", 0, "pause refinement while host CPU is above this percent")
	delay := fs.Duration("delay", 0, "pause between refinement passes")
	blendName := fs.String("blend", "rgb", "gradient color space: rgb, linear, lab, hcl")
	if !c.parseFlags(fs, args) {
		return ExitUsage
	}
	if fs.NArg() < 1 {
		return c.usageError("usage: densitymap view [flags] <file>...")
	}
	if *fps < 1 || *fps > 60 {
		return c.usageError("error: -fps must be in 1..60")
	}
	blend, err := densitymap.ParseBlend(*blendName)
	if err != nil {
		return c.fail(err)
	}
	// Log lines would tear the screen, so the viewer stays silent.
	densitymap.SetLogger(nil)

	opts := append(sf.options(), densitymap.WithCPUThrottle(*throttle), densitymap.WithRefineDelay(*delay))
	eng := densitymap.NewEngine(opts...)
	defer eng.Close()

	first, err := eng.Start(ctx, fs.Arg(0))
	if err != nil {
		return c.fail(err)
	}

	encoding.Register()
	screen, err := tcell.NewScreen()
	if err != nil {
		return c.fail(fmt.Errorf("terminal: %w", err))
	}
	if err := screen.Init(); err != nil {
		return c.fail(fmt.Errorf("terminal: %w", err))
	}
	screen.EnableMouse()

	v := &viewer{
		eng:      eng,
		files:    fs.Args(),
		session:  first,
		screen:   screen,
		view:     view.New(screen, densitymap.Gradient{Blend: blend}),
		interval: time.Second / time.Duration(*fps),
	}
	err = v.run(ctx)
	screen.Fini()
	if err != nil && !errors.Is(err, context.Canceled) {
		return c.fail(err)
	}
	return ExitOK
}

// viewer is the interactive loop of the view command.
type viewer struct {
	eng      *densitymap.Engine
	files    []string
	current  int
	session  *densitymap.Session
	screen   tcell.Screen
	view     *view.Viewer
	interval time.Duration

	// detail is the status line of the last inspected pixel.
	detail string
}

const helpLine = "p pause  n next file  click inspect  q quit"

// run redraws on a ticker and handles input until the user quits or ctx
// ends. Quitting returns nil.
func (v *viewer) run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-stopped:
				return
			}
		}
	}()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	v.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			v.draw()
		case ev := <-events:
			if quit := v.handle(ctx, ev); quit {
				return nil
			}
		}
	}
}

// handle processes one event and reports whether to quit.
func (v *viewer) handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return true
			case 'p', 'P':
				v.togglePause()
			case 'n', 'N':
				v.next(ctx)
			}
		}
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			x, y := ev.Position()
			v.inspect(x, y)
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	v.draw()
	return false
}

func (v *viewer) togglePause() {
	if v.session == nil {
		return
	}
	if v.session.Paused() {
		v.session.Resume()
	} else {
		v.session.Pause()
	}
}

// next cancels the current session and starts the next file.
func (v *viewer) next(ctx context.Context) {
	v.eng.Cancel(v.session)
	v.session = nil
	v.current = (v.current + 1) % len(v.files)
	v.detail = ""

	s, err := v.eng.Start(ctx, v.files[v.current])
	if err != nil {
		v.detail = fmt.Sprintf("error: %v", err)
		return
	}
	v.session = s
}

func (v *viewer) inspect(x, y int) {
	if v.session == nil {
		return
	}
	coord, ok := v.view.CellCoord(x, y)
	if !ok {
		return
	}
	d, err := v.session.PixelDetail(coord)
	if err != nil {
		v.detail = fmt.Sprintf("error: %v", err)
		return
	}

	avg := "unknown"
	if a, ok := d.Average(); ok {
		avg = fmt.Sprintf("%.2f", a)
	}
	v.detail = printer.Sprintf("(%d, %d) @%d  samples %d  avg %s", coord.X, coord.Y, d.Region.Offset, d.Count, avg)
	if p, _, err := v.session.Peek(coord); err == nil {
		v.detail += "  " + hex.EncodeToString(p)
	}
}

func (v *viewer) status() string {
	name := filepath.Base(v.files[v.current])
	if v.session == nil {
		return name
	}
	p := v.session.Progress()
	line := printer.Sprintf("%s  %s", name, p.State)
	switch p.State {
	case densitymap.StateInitialPass:
		line += printer.Sprintf(" %.1f%%", p.Percent())
	default:
		line += printer.Sprintf(" pass %d  %d samples", p.Passes, p.Merged)
	}
	if p.Failures > 0 {
		line += printer.Sprintf("  %d unreadable", p.Failures)
	}
	if v.session.Paused() {
		line += "  [paused]"
	}
	return line
}

func (v *viewer) draw() {
	var snap *densitymap.Snapshot
	if v.session != nil {
		snap, _ = v.session.Snapshot()
	}
	second := v.detail
	if second == "" {
		second = helpLine
	}
	v.view.Draw(snap, []string{v.status(), second})
}
