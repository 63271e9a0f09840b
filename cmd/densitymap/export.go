package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gogpu/densitymap"
)

func (c *cli) cmdExport(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sf, err := c.addSamplingFlags(fs, densitymap.DefaultExportWidth, densitymap.DefaultExportHeight)
	if err != nil {
		return c.fail(fmt.Errorf("%w: %w", densitymap.ErrInvalidOptions, err))
	}
	out := addOutputFlags(fs)
	passes := fs.Int("passes", 1, "full passes over the grid")
	force := fs.Bool("force", false, "export files smaller than the minimum size")
	if !c.parseFlags(fs, args) {
		return ExitUsage
	}
	if fs.NArg() != 1 {
		return c.usageError("usage: densitymap export [flags] <file>")
	}
	if *passes < 1 {
		return c.usageError("error: -passes must be at least 1")
	}
	if err := c.setupLogging(sf.verbose); err != nil {
		return c.fail(fmt.Errorf("%w: %w", densitymap.ErrInvalidOptions, err))
	}
	g, err := out.gradient()
	if err != nil {
		return c.fail(err)
	}
	path := fs.Arg(0)

	minSize := densitymap.MinFileSize(sf.width, sf.height, sf.window)
	fmt.Fprint(c.stdout, printer.Sprintf("minimum file size for %dx%d at %d bytes per sample: %d bytes (%s)\n",
		sf.width, sf.height, sf.window, minSize, humanBytes(minSize)))

	fi, err := os.Stat(path)
	if err != nil {
		return c.fail(fmt.Errorf("%w: %w", densitymap.ErrSourceUnavailable, err))
	}
	if fi.Size() < minSize && !*force {
		return c.fail(fmt.Errorf("%s is %s, below the minimum; use -force to export anyway", path, humanBytes(fi.Size())))
	}

	start := time.Now()
	pm, err := densitymap.Export(ctx, path, densitymap.ExportOptions{
		Width:    sf.width,
		Height:   sf.height,
		Window:   sf.window,
		Passes:   *passes,
		Workers:  sf.workers,
		Gradient: g,
		Seed:     sf.seed,
	})
	if err != nil {
		return c.fail(interrupted(err))
	}
	if pm, err = out.finish(pm, g); err != nil {
		return c.fail(err)
	}

	fmt.Fprint(c.stdout, printer.Sprintf("wrote %s (%dx%d, %d passes, %v)\n",
		out.path, pm.Width(), pm.Height(), *passes, time.Since(start).Round(time.Millisecond)))
	return ExitOK
}
