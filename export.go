package densitymap

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Export defaults.
const (
	DefaultExportWidth  = 1920
	DefaultExportHeight = 1080
)

// ExportOptions configures Export.
type ExportOptions struct {
	// Width and Height set the sampling grid, one image pixel per grid
	// pixel. Zero selects DefaultExportWidth x DefaultExportHeight.
	Width, Height int

	// Window is the number of bytes read per sample. Zero means DefaultWindow.
	Window int

	// Passes is the number of full passes, the initial pass included.
	// Zero means one.
	Passes int

	// Workers is the number of sampling goroutines. Zero means one per CPU.
	Workers int

	// Gradient colors the image. The zero value selects DefaultGradient.
	Gradient Gradient

	// ScaleWidth and ScaleHeight resize the rendered grid when both are set.
	ScaleWidth, ScaleHeight int

	// Legend appends a strip with the color ramp and its labels.
	Legend bool

	// Seed makes the export reproducible when non-zero.
	Seed uint64
}

func (o ExportOptions) withDefaults() ExportOptions {
	if o.Width == 0 && o.Height == 0 {
		o.Width, o.Height = DefaultExportWidth, DefaultExportHeight
	}
	if o.Window == 0 {
		o.Window = DefaultWindow
	}
	if o.Passes == 0 {
		o.Passes = 1
	}
	o.Gradient = o.Gradient.OrDefault()
	return o
}

// MinFileSize returns the smallest file for which every pixel of a
// width x height grid reads its own window bytes without overlap.
// Smaller files still export; neighbouring pixels then share bytes.
func MinFileSize(width, height, window int) int64 {
	return int64(max(width, 0)) * int64(max(height, 0)) * int64(max(window, 0))
}

// Export samples path in a fresh session at the export resolution and
// renders the result. It runs opts.Passes full passes and stops; no
// refinement continues after it returns.
func Export(ctx context.Context, path string, opts ExportOptions) (*Pixmap, error) {
	opts = opts.withDefaults()
	if opts.Passes < 0 {
		return nil, fmt.Errorf("%w: negative pass count %d", ErrInvalidOptions, opts.Passes)
	}

	sessionOpts := []Option{
		WithGrid(opts.Width, opts.Height),
		WithWindow(opts.Window),
		WithWorkers(opts.Workers),
		WithMaxPasses(opts.Passes),
	}
	if opts.Seed != 0 {
		sessionOpts = append(sessionOpts, WithSeed(opts.Seed))
	}

	s, err := Start(ctx, path, sessionOpts...)
	if err != nil {
		return nil, err
	}
	defer s.Cancel()

	if err := s.Wait(ctx); err != nil {
		return nil, fmt.Errorf("densitymap: export %s: %w", path, err)
	}
	if p := s.Progress(); p.Passes < opts.Passes {
		return nil, fmt.Errorf("densitymap: export %s: %w after %d of %d passes", path, context.Canceled, p.Passes, opts.Passes)
	}

	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	pm := snap.Image(opts.Gradient)

	if opts.ScaleWidth > 0 && opts.ScaleHeight > 0 {
		if pm, err = pm.Scale(opts.ScaleWidth, opts.ScaleHeight); err != nil {
			return nil, err
		}
	}
	if opts.Legend {
		if pm, err = pm.WithLegend(opts.Gradient); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// Legend layout in pixels.
const (
	legendHeight   = 28
	legendPad      = 6
	legendBarH     = 8
	legendFontSize = 11
	legendMinWidth = 96
)

var legendFace = sync.OnceValues(func() (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("densitymap: parse legend font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    legendFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("densitymap: legend face: %w", err)
	}
	return face, nil
})

// WithLegend returns a copy of p with a legend strip appended below it:
// the gradient from MinScore to MaxScore, labelled at both ends, followed
// by a swatch of the unknown color. Pixmaps narrower than 96 pixels get
// the bar without labels.
func (p *Pixmap) WithLegend(g Gradient) (*Pixmap, error) {
	g = g.OrDefault()
	w := p.width
	dst := image.NewNRGBA(image.Rect(0, 0, w, p.height+legendHeight))
	xdraw.Draw(dst, p.Bounds(), p.ToImage(), image.Point{}, xdraw.Src)

	strip := image.Rect(0, p.height, w, p.height+legendHeight)
	xdraw.Draw(dst, strip, image.NewUniform(g.Unknown.NRGBA()), image.Point{}, xdraw.Src)

	labelled := w >= legendMinWidth
	barX0, barX1 := 0, w
	if labelled {
		barX0, barX1 = legendPad, w-legendPad-legendBarH*2
	}
	barY := p.height + legendPad
	for x := barX0; x < barX1; x++ {
		avg := float64(MinScore)
		if span := barX1 - barX0 - 1; span > 0 {
			avg += float64(MaxScore-MinScore) * float64(x-barX0) / float64(span)
		}
		c := g.ColorFor(avg).NRGBA()
		for y := barY; y < barY+legendBarH; y++ {
			dst.SetNRGBA(x, y, c)
		}
	}
	if !labelled {
		return fromNRGBA(dst), nil
	}

	// Unknown swatch, outlined so it is visible on the strip background.
	sw := image.Rect(barX1+legendPad, barY, w-legendPad, barY+legendBarH)
	xdraw.Draw(dst, sw, image.NewUniform(White.NRGBA()), image.Point{}, xdraw.Src)
	xdraw.Draw(dst, sw.Inset(1), image.NewUniform(g.Unknown.NRGBA()), image.Point{}, xdraw.Src)

	face, err := legendFace()
	if err != nil {
		return nil, err
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}),
		Face: face,
	}
	baseline := fixed.I(p.height + legendHeight - 3)

	d.Dot = fixed.Point26_6{X: fixed.I(barX0), Y: baseline}
	d.DrawString("uniform")

	high := "diverse"
	d.Dot = fixed.Point26_6{X: fixed.I(barX1) - d.MeasureString(high), Y: baseline}
	d.DrawString(high)

	return fromNRGBA(dst), nil
}
