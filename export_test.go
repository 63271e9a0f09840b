package densitymap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestMinFileSize(t *testing.T) {
	tests := []struct {
		w, h, window int
		want         int64
	}{
		{1920, 1080, 8, 16588800},
		{400, 40, 8, 128000},
		{1, 1, 1, 1},
		{0, 10, 8, 0},
		{-5, 10, 8, 0},
	}
	for _, tt := range tests {
		if got := MinFileSize(tt.w, tt.h, tt.window); got != tt.want {
			t.Errorf("MinFileSize(%d, %d, %d) = %d, want %d", tt.w, tt.h, tt.window, got, tt.want)
		}
	}
}

func TestExport_GridResolution(t *testing.T) {
	path := writeTemp(t, make([]byte, 32*16*8))
	pm, err := Export(context.Background(), path, ExportOptions{Width: 32, Height: 16, Passes: 2, Seed: 1})
	if err != nil {
		t.Fatalf("Export() = %v", err)
	}
	if pm.Width() != 32 || pm.Height() != 16 {
		t.Fatalf("Export size = %dx%d, want 32x16", pm.Width(), pm.Height())
	}
	for y := range 16 {
		for x := range 32 {
			if got := pm.GetPixel(x, y).Hex(); got != "#8E1616" {
				t.Fatalf("pixel (%d, %d) = %s, want #8E1616", x, y, got)
			}
		}
	}
}

func TestExport_ScaleAndLegend(t *testing.T) {
	path := writeTemp(t, randomBytes(4096, 13))

	tests := []struct {
		name         string
		opts         ExportOptions
		wantW, wantH int
	}{
		{"scaled", ExportOptions{Width: 16, Height: 8, ScaleWidth: 160, ScaleHeight: 80}, 160, 80},
		{"legend", ExportOptions{Width: 128, Height: 8, Legend: true}, 128, 8 + legendHeight},
		{"narrow legend", ExportOptions{Width: 16, Height: 8, Legend: true}, 16, 8 + legendHeight},
		{"scaled legend", ExportOptions{Width: 16, Height: 8, ScaleWidth: 320, ScaleHeight: 40, Legend: true}, 320, 40 + legendHeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := Export(context.Background(), path, tt.opts)
			if err != nil {
				t.Fatalf("Export() = %v", err)
			}
			if pm.Width() != tt.wantW || pm.Height() != tt.wantH {
				t.Errorf("Export size = %dx%d, want %dx%d", pm.Width(), pm.Height(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestPixmap_WithLegend(t *testing.T) {
	pm := NewPixmap(200, 10)
	pm.Clear(White)
	g := DefaultGradient

	out, err := pm.WithLegend(g)
	if err != nil {
		t.Fatal(err)
	}
	if out.GetPixel(100, 5) != White {
		t.Error("legend changed the map area")
	}
	barY := 10 + legendPad
	if got := out.GetPixel(legendPad, barY).Hex(); got != g.Start.Hex() {
		t.Errorf("bar start = %s, want %s", got, g.Start.Hex())
	}
	barEnd := 200 - legendPad - legendBarH*2 - 1
	if got := out.GetPixel(barEnd, barY).Hex(); got != g.End.Hex() {
		t.Errorf("bar end = %s, want %s", got, g.End.Hex())
	}

	// The labels draw light text somewhere on the strip.
	lit := false
	for y := barY + legendBarH; y < out.Height() && !lit; y++ {
		for x := range out.Width() {
			if c := out.GetPixel(x, y).NRGBA(); c.G > 0x80 && c.B > 0x80 {
				lit = true
				break
			}
		}
	}
	if !lit {
		t.Error("legend labels not drawn")
	}
}

func TestExport_Errors(t *testing.T) {
	if _, err := Export(context.Background(), filepath.Join(t.TempDir(), "missing"), ExportOptions{}); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Export(missing) = %v, want ErrSourceUnavailable", err)
	}

	path := writeTemp(t, make([]byte, 64))
	if _, err := Export(context.Background(), path, ExportOptions{Width: 4, Height: 4, Passes: -1}); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("Export(negative passes) = %v, want ErrInvalidOptions", err)
	}
	if _, err := Export(context.Background(), path, ExportOptions{Width: 4, Height: 0}); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("Export(zero height) = %v, want ErrInvalidOptions", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Export(ctx, path, ExportOptions{Width: 4, Height: 4}); !errors.Is(err, context.Canceled) {
		t.Errorf("Export(canceled) = %v, want context.Canceled", err)
	}
}
