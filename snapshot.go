package densitymap

import "github.com/gogpu/densitymap/internal/grid"

// Snapshot is an immutable copy of a session's pixel grid.
type Snapshot struct {
	g *grid.Snapshot
}

// Width returns the grid width.
func (s *Snapshot) Width() int { return s.g.Width() }

// Height returns the grid height.
func (s *Snapshot) Height() int { return s.g.Height() }

// At returns the state of pixel (x, y). Coordinates outside the grid
// return an unknown state.
func (s *Snapshot) At(x, y int) PixelState { return s.g.At(x, y) }

// Known returns the number of pixels with at least one successful sample.
func (s *Snapshot) Known() int { return s.g.Known() }

// Image renders the snapshot at grid resolution, one image pixel per grid
// pixel. A zero Gradient selects DefaultGradient.
func (s *Snapshot) Image(g Gradient) *Pixmap {
	g = g.OrDefault()
	w, h := s.Width(), s.Height()
	pm := NewPixmap(w, h)
	for y := range h {
		for x := range w {
			pm.SetPixel(x, y, g.PixelColor(s.At(x, y)))
		}
	}
	return pm
}
