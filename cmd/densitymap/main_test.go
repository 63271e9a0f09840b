package main

import (
	"bytes"
	"context"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/densitymap"
	"github.com/gogpu/densitymap/internal/view"
)

func noEnv(string) string { return "" }

func envOf(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

// runCLI runs the command line and returns its exit code and output.
func runCLI(t *testing.T, getenv func(string) string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	orig := densitymap.Logger()
	t.Cleanup(func() { densitymap.SetLogger(orig) })

	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut, getenv)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func randomData(n int) []byte {
	r := rand.New(rand.NewPCG(1, 2))
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(r.IntN(256))
	}
	return p
}

func pngSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestRun_Dispatch(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"no args", nil, ExitUsage, "", "Usage:"},
		{"help", []string{"help"}, ExitOK, "Usage:", ""},
		{"version", []string{"version"}, ExitOK, "densitymap dev", ""},
		{"unknown", []string{"paint"}, ExitUsage, "", "unknown command: paint"},
		{"render without file", []string{"render"}, ExitUsage, "", "usage: densitymap render"},
		{"render bad flag", []string{"render", "-bogus", "f"}, ExitUsage, "", "flag provided but not defined"},
		{"inspect missing args", []string{"inspect", "f", "1"}, ExitUsage, "", "usage: densitymap inspect"},
		{"view without file", []string{"view"}, ExitUsage, "", "usage: densitymap view"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, noEnv, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			if !strings.Contains(stdout, tt.wantOut) {
				t.Errorf("stdout = %q, want it to contain %q", stdout, tt.wantOut)
			}
			if !strings.Contains(stderr, tt.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// Render Tests
// =============================================================================

func TestRender_WritesPNG(t *testing.T) {
	target := writeFile(t, "target.bin", randomData(4096))
	out := filepath.Join(t.TempDir(), "map.png")

	code, stdout, stderr := runCLI(t, noEnv, "render", "-width", "16", "-height", "8", "-o", out, target)
	if code != ExitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "wrote "+out) {
		t.Errorf("stdout = %q", stdout)
	}
	if w, h := pngSize(t, out); w != 16 || h != 8 {
		t.Errorf("PNG is %dx%d, want 16x8", w, h)
	}
}

func TestRender_ScaleLegendRefine(t *testing.T) {
	target := writeFile(t, "target.bin", randomData(4096))
	out := filepath.Join(t.TempDir(), "map.png")

	code, _, stderr := runCLI(t, noEnv, "render", "-width", "16", "-height", "8",
		"-refine", "20ms", "-blend", "lab", "-scale", "128x64", "-legend", "-progress", "-o", out, target)
	if code != ExitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if w, h := pngSize(t, out); w != 128 || h <= 64 {
		t.Errorf("PNG is %dx%d, want 128 wide with a legend below 64 rows", w, h)
	}
}

func TestRender_Errors(t *testing.T) {
	target := writeFile(t, "target.bin", randomData(64))

	tests := []struct {
		name string
		env  func(string) string
		args []string
		want int
	}{
		{"missing file", noEnv, []string{"render", filepath.Join(t.TempDir(), "nope")}, ExitUnavailable},
		{"window out of range", noEnv, []string{"render", "-window", "0", target}, ExitUsage},
		{"bad scale", noEnv, []string{"render", "-width", "4", "-height", "4", "-scale", "big", "-o", filepath.Join(t.TempDir(), "x.png"), target}, ExitUsage},
		{"bad env window", envOf(map[string]string{envWindow: "eight"}), []string{"render", target}, ExitUsage},
		{"bad env log level", envOf(map[string]string{envLog: "loud"}), []string{"render", target}, ExitUsage},
		{"negative refine", noEnv, []string{"render", "-refine", "-1s", target}, ExitUsage},
		{"unknown blend", noEnv, []string{"render", "-blend", "cmyk", target}, ExitUsage},
		{"view unknown blend", noEnv, []string{"view", "-blend", "cmyk", target}, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.env, tt.args...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.want, stderr)
			}
		})
	}
}

func TestRender_EnvOverrides(t *testing.T) {
	target := writeFile(t, "target.bin", randomData(1024))
	out := filepath.Join(t.TempDir(), "map.png")
	env := envOf(map[string]string{envWorkers: "2", envWindow: "16", envLog: "debug"})

	code, _, stderr := runCLI(t, env, "render", "-width", "4", "-height", "4", "-o", out, target)
	if code != ExitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stderr, "session started") || !strings.Contains(stderr, "window=16") || !strings.Contains(stderr, "workers=2") {
		t.Errorf("debug log missing or overrides not applied:\n%s", stderr)
	}
}

// =============================================================================
// Export Tests
// =============================================================================

func TestExport_MinimumSize(t *testing.T) {
	target := writeFile(t, "small.bin", randomData(100))
	out := filepath.Join(t.TempDir(), "export.png")

	code, stdout, _ := runCLI(t, noEnv, "export", "-width", "8", "-height", "8", "-o", out, target)
	if code != ExitError {
		t.Errorf("exit code = %d, want %d for an undersized file", code, ExitError)
	}
	if !strings.Contains(stdout, "512 bytes (512 B)") {
		t.Errorf("stdout = %q, want the minimum size", stdout)
	}

	code, stdout, stderr := runCLI(t, noEnv, "export", "-width", "8", "-height", "8", "-passes", "2", "-force", "-o", out, target)
	if code != ExitOK {
		t.Fatalf("forced export exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "2 passes") {
		t.Errorf("stdout = %q", stdout)
	}
	if w, h := pngSize(t, out); w != 8 || h != 8 {
		t.Errorf("PNG is %dx%d, want 8x8", w, h)
	}
}

func TestExport_ThousandsSeparators(t *testing.T) {
	target := writeFile(t, "tiny.bin", []byte{1})
	code, stdout, _ := runCLI(t, noEnv, "export", "-o", filepath.Join(t.TempDir(), "x.png"), target)
	if code != ExitError {
		t.Errorf("exit code = %d, want %d", code, ExitError)
	}
	if !strings.Contains(stdout, "16,588,800 bytes (15.82 MB)") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestExport_Missing(t *testing.T) {
	code, _, _ := runCLI(t, noEnv, "export", filepath.Join(t.TempDir(), "nope"))
	if code != ExitUnavailable {
		t.Errorf("exit code = %d, want %d", code, ExitUnavailable)
	}
}

// =============================================================================
// Inspect Tests
// =============================================================================

func TestInspect(t *testing.T) {
	target := writeFile(t, "zeros.bin", make([]byte, 16*16*8))

	code, stdout, stderr := runCLI(t, noEnv, "inspect", "-width", "16", "-height", "16", "-peek", "2", target, "3", "4")
	if code != ExitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	for _, want := range []string{
		"pixel:    (3, 4)",
		"region:   [416, 424) 8 B",
		"samples:  1",
		"average:  1.000",
		"color:    #8E1616",
		"peek:     @416 0000000000000000",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	if n := strings.Count(stdout, "peek:"); n != 2 {
		t.Errorf("%d peek lines, want 2", n)
	}
}

func TestInspect_OutOfRange(t *testing.T) {
	target := writeFile(t, "zeros.bin", make([]byte, 64))
	code, _, stderr := runCLI(t, noEnv, "inspect", "-width", "4", "-height", "4", target, "4", "0")
	if code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(stderr, "x 4 outside 0..3") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestInspect_EmptyFile(t *testing.T) {
	target := writeFile(t, "empty.bin", nil)
	code, stdout, _ := runCLI(t, noEnv, "inspect", "-width", "4", "-height", "4", "-peek", "1", target, "1", "1")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"region:   none", "average:  unknown", "peek:     unreadable"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

// =============================================================================
// Viewer Tests
// =============================================================================

func TestViewer_Interaction(t *testing.T) {
	dir := t.TempDir()
	files := []string{filepath.Join(dir, "a.bin"), filepath.Join(dir, "b.bin")}
	for _, f := range files {
		if err := os.WriteFile(f, randomData(2048), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()
	screen.SetSize(40, 12)

	eng := densitymap.NewEngine(densitymap.WithGrid(16, 8))
	defer eng.Close()
	first, err := eng.Start(context.Background(), files[0])
	if err != nil {
		t.Fatal(err)
	}

	v := &viewer{
		eng:      eng,
		files:    files,
		session:  first,
		screen:   screen,
		view:     view.New(screen, densitymap.DefaultGradient),
		interval: 10 * time.Millisecond,
	}

	errc := make(chan error, 1)
	go func() { errc <- v.run(context.Background()) }()

	screen.InjectKey(tcell.KeyRune, 'n', tcell.ModNone)
	screen.InjectMouse(0, 0, tcell.Button1, tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'p', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run() = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("viewer did not quit")
	}

	if v.current != 1 || v.session == first {
		t.Error("n did not switch to the next file")
	}
	if first.State() != densitymap.StateStopped {
		t.Errorf("previous session state = %v, want Stopped", first.State())
	}
	if !v.session.Paused() {
		t.Error("p did not pause the session")
	}
	if !strings.HasPrefix(v.detail, "(0, 0) @0") {
		t.Errorf("detail = %q, want the clicked pixel", v.detail)
	}
	if s := v.status(); !strings.HasPrefix(s, "b.bin") || !strings.Contains(s, "[paused]") {
		t.Errorf("status = %q", s)
	}
}

func TestViewer_ContextEnds(t *testing.T) {
	target := writeFile(t, "a.bin", randomData(512))
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()

	eng := densitymap.NewEngine(densitymap.WithGrid(4, 4))
	defer eng.Close()
	s, err := eng.Start(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	v := &viewer{eng: eng, files: []string{target}, session: s, screen: screen,
		view: view.New(screen, densitymap.Gradient{}), interval: 5 * time.Millisecond}
	if err := v.run(ctx); err == nil {
		t.Error("run() = nil after the context ended")
	}
}

// =============================================================================
// Format Tests
// =============================================================================

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{16588800, "15.82 MB"},
		{3 << 30, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1920x1080", 1920, 1080, false},
		{" 64X32 ", 64, 32, false},
		{"64", 0, 0, true},
		{"0x10", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		w, h, err := parseSize(tt.in)
		if (err != nil) != tt.wantErr || w != tt.w || h != tt.h {
			t.Errorf("parseSize(%q) = %d, %d, %v", tt.in, w, h, err)
		}
	}
}
