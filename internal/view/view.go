// Package view draws density map snapshots on a terminal.
//
// Each character cell shows two vertically stacked grid pixels using the
// upper half block: the foreground colors the top pixel, the background the
// bottom one. Grids larger than the terminal are sampled nearest-neighbour;
// smaller grids are drawn one pixel per half cell from the top-left corner.
package view

import (
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/gogpu/densitymap"
	"github.com/gogpu/densitymap/internal/cache"
)

// HalfBlock is the rune drawn in every map cell.
const HalfBlock = '▀'

// colorLevels is the number of steps the viewer distinguishes between
// MinScore and MaxScore. Neighbouring steps differ by at most a quarter of
// an 8-bit channel value, so the quantisation is invisible.
const colorLevels = 1024

// Viewer renders snapshots onto a tcell screen. It is not safe for
// concurrent use; draw from the goroutine that owns the screen.
type Viewer struct {
	screen   tcell.Screen
	gradient densitymap.Gradient
	status   tcell.Style

	// colors caches the terminal color of each quantised average, so a
	// repaint blends each level once instead of once per cell.
	colors *cache.Cache[int, tcell.Color]

	layout layout
}

// layout maps cells of the last drawn frame to grid pixels.
type layout struct {
	gridW, gridH int
	cols, rows   int
}

func fit(gridW, gridH, screenW, mapRows int) layout {
	l := layout{gridW: gridW, gridH: gridH}
	if gridW <= 0 || gridH <= 0 || screenW <= 0 || mapRows <= 0 {
		return l
	}
	l.cols = min(gridW, screenW)
	l.rows = min((gridH+1)/2, mapRows)
	return l
}

// pixel returns the grid pixel shown by column cx and half-row r.
func (l layout) pixel(cx, r int) densitymap.Coordinate {
	return densitymap.Coordinate{
		X: cx * l.gridW / l.cols,
		Y: r * l.gridH / (2 * l.rows),
	}
}

// New creates a viewer drawing with gradient g. A Gradient without colors
// selects the densitymap.DefaultGradient colors.
func New(screen tcell.Screen, g densitymap.Gradient) *Viewer {
	g = g.OrDefault()
	return &Viewer{
		screen:   screen,
		gradient: g,
		status:   tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorBlack),
		colors:   cache.New[int, tcell.Color](colorLevels + 1),
	}
}

func rgb(c color.NRGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// colorKey quantises the average of st to a level in [0, colorLevels], or
// -1 for a pixel without samples.
func colorKey(st densitymap.PixelState) int {
	avg, ok := st.Average()
	if !ok {
		return -1
	}
	t := (avg - densitymap.MinScore) / (densitymap.MaxScore - densitymap.MinScore)
	return int(math.Round(min(max(t, 0), 1) * colorLevels))
}

// color returns the terminal color of st. tcell downgrades RGB colors on
// terminals without true color.
func (v *Viewer) color(st densitymap.PixelState) tcell.Color {
	key := colorKey(st)
	return v.colors.GetOrCreate(key, func() tcell.Color {
		if key < 0 {
			return rgb(v.gradient.Unknown.NRGBA())
		}
		avg := densitymap.MinScore + float64(key)*(densitymap.MaxScore-densitymap.MinScore)/colorLevels
		return rgb(v.gradient.ColorFor(avg).NRGBA())
	})
}

// Draw clears the screen, draws snap above the status lines and shows the
// frame. A nil snap draws only the status lines.
func (v *Viewer) Draw(snap *densitymap.Snapshot, status []string) {
	v.screen.Clear()
	sw, sh := v.screen.Size()
	mapRows := max(sh-len(status), 0)

	v.layout = layout{}
	if snap != nil {
		v.layout = fit(snap.Width(), snap.Height(), sw, mapRows)
	}

	l := v.layout
	for cy := range l.rows {
		for cx := range l.cols {
			top := l.pixel(cx, 2*cy)
			bottom := l.pixel(cx, 2*cy+1)
			st := tcell.StyleDefault.
				Foreground(v.color(snap.At(top.X, top.Y))).
				Background(v.color(snap.At(bottom.X, bottom.Y)))
			v.screen.SetContent(cx, cy, HalfBlock, nil, st)
		}
	}

	for i, line := range status {
		y := mapRows + i
		if y >= sh {
			break
		}
		v.drawText(0, y, sw, line)
	}

	v.screen.Show()
}

// drawText writes s at (x, y) in the status style, padding the rest of the
// row and cutting s at width columns.
func (v *Viewer) drawText(x, y, width int, s string) {
	col := x
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > width {
			break
		}
		v.screen.SetContent(col, y, r, nil, v.status)
		col += w
	}
	for ; col < width; col++ {
		v.screen.SetContent(col, y, ' ', nil, v.status)
	}
}

// CellCoord returns the grid pixel under cell (cx, cy) of the last frame.
// Cells hold two pixels; the top one is returned. It reports false for
// cells outside the map.
func (v *Viewer) CellCoord(cx, cy int) (densitymap.Coordinate, bool) {
	l := v.layout
	if cx < 0 || cy < 0 || cx >= l.cols || cy >= l.rows {
		return densitymap.Coordinate{}, false
	}
	return l.pixel(cx, 2*cy), true
}

// MapSize returns the number of cells the last frame's map covered.
func (v *Viewer) MapSize() (cols, rows int) {
	return v.layout.cols, v.layout.rows
}
