// Package mapping converts logical grid coordinates into byte ranges of a file.
//
// The grid is laid out column-major over the file: walking down a column
// advances through the file, and each column continues where the previous
// one ended. Index i of W*H owns the half-open range
//
//	[floor(i*size/(W*H)), floor((i+1)*size/(W*H)))
//
// so the regions of all coordinates tile [0, size) with uniform density.
// When the file is smaller than the grid, regions are widened to one byte and
// neighbouring coordinates share bytes.
package mapping

import "math/bits"

// Coordinate identifies one cell of the logical grid.
type Coordinate struct {
	X, Y int
}

// Region is a byte range of the target file.
type Region struct {
	Offset int64
	Length int64
}

// End returns the offset one past the last byte of the region.
func (r Region) End() int64 {
	return r.Offset + r.Length
}

// Mapper maps coordinates of a width x height grid onto a file of size bytes.
// The zero value maps nothing.
type Mapper struct {
	width  int
	height int
	size   int64
}

// New creates a mapper. Non-positive dimensions produce a mapper that
// contains no coordinates.
func New(width, height int, size int64) Mapper {
	if width <= 0 || height <= 0 {
		width, height = 0, 0
	}
	if size < 0 {
		size = 0
	}
	return Mapper{width: width, height: height, size: size}
}

// Width returns the grid width.
func (m Mapper) Width() int { return m.width }

// Height returns the grid height.
func (m Mapper) Height() int { return m.height }

// Size returns the mapped file size in bytes.
func (m Mapper) Size() int64 { return m.size }

// Total returns the number of coordinates in the grid.
func (m Mapper) Total() int { return m.width * m.height }

// Contains reports whether c lies inside the grid.
func (m Mapper) Contains(c Coordinate) bool {
	return c.X >= 0 && c.X < m.width && c.Y >= 0 && c.Y < m.height
}

// Index returns the position of c in file order.
func (m Mapper) Index(c Coordinate) int {
	return c.X*m.height + c.Y
}

// Region returns the byte range owned by c.
// It returns false for coordinates outside the grid and for empty files.
func (m Mapper) Region(c Coordinate) (Region, bool) {
	if !m.Contains(c) || m.size == 0 {
		return Region{}, false
	}

	total := uint64(m.Total())
	idx := uint64(m.Index(c))
	start := scale(idx, uint64(m.size), total)
	end := scale(idx+1, uint64(m.size), total)

	// start < size always holds, so widening never runs past the file.
	if end <= start {
		end = start + 1
	}

	return Region{Offset: int64(start), Length: int64(end - start)}, true
}

// Window narrows r to the bytes read for one sample.
//
// The window is window bytes long, clipped to the file size. When the region
// is longer than the window, jitter picks the start inside the region; jitter
// receives the number of valid start positions and must return a value in
// [0, n). A nil jitter always starts at the region offset.
func (m Mapper) Window(r Region, window int, jitter func(n int64) int64) Region {
	length := int64(window)
	if length < 1 {
		length = 1
	}
	if length > m.size {
		length = m.size
	}

	off := r.Offset
	if slack := r.Length - length; slack > 0 && jitter != nil {
		off += jitter(slack + 1)
	}
	if off+length > m.size {
		off = m.size - length
	}
	if off < 0 {
		off = 0
	}

	return Region{Offset: off, Length: length}
}

// Coordinates lists every coordinate of a width x height grid, row by row.
func Coordinates(width, height int) []Coordinate {
	if width <= 0 || height <= 0 {
		return nil
	}
	coords := make([]Coordinate, 0, width*height)
	for y := range height {
		for x := range width {
			coords = append(coords, Coordinate{X: x, Y: y})
		}
	}
	return coords
}

// scale computes floor(a*b/c) without overflowing for a <= c.
func scale(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		// Only reachable for a > c; callers never do that.
		return b
	}
	q, _ := bits.Div64(hi, lo, c)
	return q
}
