package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"time"

	"github.com/gogpu/densitymap"
)

func (c *cli) cmdInspect(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	sf, err := c.addSamplingFlags(fs, densitymap.DefaultWidth, densitymap.DefaultHeight)
	if err != nil {
		return c.fail(fmt.Errorf("%w: %w", densitymap.ErrInvalidOptions, err))
	}
	refine := fs.Duration("refine", 0, "refine for this long before reading the pixel")
	peeks := fs.Int("peek", 1, "fresh windows to read from the pixel's region")
	if !c.parseFlags(fs, args) {
		return ExitUsage
	}
	if fs.NArg() != 3 {
		return c.usageError("usage: densitymap inspect [flags] <file> <x> <y>")
	}
	if *refine < 0 || *peeks < 0 {
		return c.usageError("error: -refine and -peek must not be negative")
	}
	x, err := parseCoord(fs.Arg(1), "x", sf.width)
	if err != nil {
		return c.usageError("error: %v", err)
	}
	y, err := parseCoord(fs.Arg(2), "y", sf.height)
	if err != nil {
		return c.usageError("error: %v", err)
	}
	if err := c.setupLogging(sf.verbose); err != nil {
		return c.fail(fmt.Errorf("%w: %w", densitymap.ErrInvalidOptions, err))
	}

	opts := sf.options()
	if *refine == 0 {
		opts = append(opts, densitymap.WithMaxPasses(1))
	}
	s, err := densitymap.Start(ctx, fs.Arg(0), opts...)
	if err != nil {
		return c.fail(err)
	}
	defer s.Cancel()

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
	}

	coord := densitymap.Coordinate{X: x, Y: y}
	d, err := s.PixelDetail(coord)
	if err != nil {
		return c.fail(err)
	}
	c.printDetail(d)

	for range *peeks {
		p, w, err := s.Peek(coord)
		if err != nil {
			fmt.Fprintf(c.stdout, "peek:     unreadable (%v)\n", err)
			continue
		}
		fmt.Fprint(c.stdout, printer.Sprintf("peek:     @%d %s\n", w.Offset, hex.EncodeToString(p)))
	}
	return ExitOK
}

func (c *cli) printDetail(d densitymap.PixelDetail) {
	fmt.Fprintf(c.stdout, "pixel:    (%d, %d)\n", d.Coord.X, d.Coord.Y)
	if d.Region.Length == 0 {
		fmt.Fprintln(c.stdout, "region:   none (empty file)")
	} else {
		fmt.Fprint(c.stdout, printer.Sprintf("region:   [%d, %d) %s\n", d.Region.Offset, d.Region.End(), humanBytes(d.Region.Length)))
	}
	fmt.Fprint(c.stdout, printer.Sprintf("samples:  %d\n", d.Count))
	if avg, ok := d.Average(); ok {
		fmt.Fprintf(c.stdout, "average:  %.3f\n", avg)
		fmt.Fprintf(c.stdout, "color:    %s\n", densitymap.DefaultGradient.PixelColor(d.PixelState).Hex())
	} else {
		fmt.Fprintln(c.stdout, "average:  unknown")
	}
}
