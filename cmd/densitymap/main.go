// Command densitymap renders byte-diversity maps of files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gogpu/densitymap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUnavailable = 3
	ExitUsage       = 64
)

// Environment overrides for flag defaults.
const (
	envWorkers = "DENSITYMAP_WORKERS"
	envWindow  = "DENSITYMAP_WINDOW"
	envLog     = "DENSITYMAP_LOG"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

// cli carries the process environment of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	c := &cli{stdout: stdout, stderr: stderr, getenv: getenv}

	if len(args) < 1 {
		c.usage(stderr)
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "densitymap %s (commit: %s, built: %s)\n", version, commit, date)
		return ExitOK
	case "render":
		return c.cmdRender(ctx, rest)
	case "export":
		return c.cmdExport(ctx, rest)
	case "inspect":
		return c.cmdInspect(ctx, rest)
	case "view":
		return c.cmdView(ctx, rest)
	case "help", "-h", "--help":
		c.usage(stdout)
		return ExitOK
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		c.usage(stderr)
		return ExitUsage
	}
}

func (c *cli) usage(w io.Writer) {
	fmt.Fprintln(w, "densitymap - byte diversity maps of files")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: densitymap <command> [options] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render <file>           Sample a file and write a PNG")
	fmt.Fprintln(w, "    -refine duration      Keep refining after the initial pass")
	fmt.Fprintln(w, "    -blend space          Gradient color space: rgb, linear, lab, hcl")
	fmt.Fprintln(w, "  export <file>           Render at export resolution in a fresh session")
	fmt.Fprintln(w, "    -force                Export files below the minimum size")
	fmt.Fprintln(w, "  inspect <file> <x> <y>  Show one pixel and a fresh sample of its bytes")
	fmt.Fprintln(w, "  view <file>...          Interactive terminal viewer")
	fmt.Fprintln(w, "  version                 Show version info")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  %s  default worker count\n", envWorkers)
	fmt.Fprintf(w, "  %s   default bytes per sample\n", envWindow)
	fmt.Fprintf(w, "  %s      log level: debug, info, warn, error\n", envLog)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0   Success")
	fmt.Fprintln(w, "  1   General error")
	fmt.Fprintln(w, "  3   File unavailable")
	fmt.Fprintln(w, "  64  Usage error")
}

// samplingFlags are shared by every sampling command.
type samplingFlags struct {
	width   int
	height  int
	window  int
	workers int
	seed    uint64
	verbose bool
}

// addSamplingFlags registers the shared flags with defaults taken from the
// environment where set.
func (c *cli) addSamplingFlags(fs *flag.FlagSet, width, height int) (*samplingFlags, error) {
	window, err := c.envInt(envWindow, densitymap.DefaultWindow)
	if err != nil {
		return nil, err
	}
	workers, err := c.envInt(envWorkers, 0)
	if err != nil {
		return nil, err
	}

	f := &samplingFlags{}
	fs.IntVar(&f.width, "width", width, "grid width in pixels")
	fs.IntVar(&f.height, "height", height, "grid height in pixels")
	fs.IntVar(&f.window, "window", window, "bytes read per sample (1-64)")
	fs.IntVar(&f.workers, "workers", workers, "sampling goroutines (0 = one per CPU)")
	fs.Uint64Var(&f.seed, "seed", 0, "random seed for reproducible sampling (0 = random)")
	fs.BoolVar(&f.verbose, "v", false, "debug logging to stderr")
	return f, nil
}

func (f *samplingFlags) options() []densitymap.Option {
	opts := []densitymap.Option{
		densitymap.WithGrid(f.width, f.height),
		densitymap.WithWindow(f.window),
		densitymap.WithWorkers(f.workers),
	}
	if f.seed != 0 {
		opts = append(opts, densitymap.WithSeed(f.seed))
	}
	return opts
}

func (c *cli) envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(c.getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// setupLogging installs the package logger chosen by -v or DENSITYMAP_LOG.
// Warnings are logged by default.
func (c *cli) setupLogging(verbose bool) error {
	level := slog.LevelWarn
	if v := strings.TrimSpace(c.getenv(envLog)); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", envLog, err)
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	densitymap.SetLogger(slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// parseFlags parses args, reporting problems on stderr. It returns false
// when the command should exit with ExitUsage.
func (c *cli) parseFlags(fs *flag.FlagSet, args []string) bool {
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return false
	}
	return true
}

// fail prints err and maps it to an exit code.
func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "error: %v\n", err)
	switch {
	case errors.Is(err, densitymap.ErrSourceUnavailable):
		return ExitUnavailable
	case errors.Is(err, densitymap.ErrInvalidOptions):
		return ExitUsage
	default:
		return ExitError
	}
}

// usageError prints a usage line and returns ExitUsage.
func (c *cli) usageError(format string, args ...any) int {
	fmt.Fprintf(c.stderr, format+"\n", args...)
	return ExitUsage
}
