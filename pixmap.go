package densitymap

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Pixmap represents a rectangular pixel buffer. Pixels are stored as
// non-premultiplied RGBA, 4 bytes per pixel, rows top to bottom.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a new pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	width, height = max(width, 0), max(height, 0)
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// fromNRGBA wraps a copy of img's pixels.
func fromNRGBA(img *image.NRGBA) *Pixmap {
	b := img.Bounds()
	pm := NewPixmap(b.Dx(), b.Dy())
	row := pm.width * 4
	for y := range pm.height {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(pm.data[y*row:(y+1)*row], src[:row])
	}
	return pm
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel data (RGBA format).
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// SetPixel sets the color of a single pixel.
func (p *Pixmap) SetPixel(x, y int, c RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	n := c.NRGBA()
	i := (y*p.width + x) * 4
	p.data[i+0] = n.R
	p.data[i+1] = n.G
	p.data[i+2] = n.B
	p.data[i+3] = n.A
}

// GetPixel returns the color of a single pixel.
func (p *Pixmap) GetPixel(x, y int) RGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return RGBA{}
	}
	i := (y*p.width + x) * 4
	return RGBA{
		R: float64(p.data[i+0]) / 255,
		G: float64(p.data[i+1]) / 255,
		B: float64(p.data[i+2]) / 255,
		A: float64(p.data[i+3]) / 255,
	}
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c RGBA) {
	n := c.NRGBA()
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = n.R
		p.data[i+1] = n.G
		p.data[i+2] = n.B
		p.data[i+3] = n.A
	}
}

// ToImage converts the pixmap to an image.NRGBA.
func (p *Pixmap) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// Scale returns a copy resized to width x height with nearest-neighbour
// sampling, which keeps every grid pixel a solid block.
func (p *Pixmap) Scale(width, height int) (*Pixmap, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: scale to %dx%d", ErrInvalidOptions, width, height)
	}
	if width == p.width && height == p.height {
		return fromNRGBA(p.ToImage()), nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), p.ToImage(), p.Bounds(), xdraw.Src, nil)
	return fromNRGBA(dst), nil
}

// EncodePNG writes the pixmap to w as PNG.
func (p *Pixmap) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, p.ToImage()); err != nil {
		return fmt.Errorf("densitymap: encode png: %w", err)
	}
	return nil
}

// SavePNG saves the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return fmt.Errorf("densitymap: save png: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("densitymap: save png: %w", cerr)
		}
	}()
	return p.EncodePNG(f)
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	return p.GetPixel(x, y).NRGBA()
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.NRGBAModel
}
