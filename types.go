package densitymap

import (
	"github.com/gogpu/densitymap/internal/entropy"
	"github.com/gogpu/densitymap/internal/grid"
	"github.com/gogpu/densitymap/internal/mapping"
)

// Coordinate identifies one pixel of the logical grid. X runs left to
// right, Y top to bottom.
type Coordinate = mapping.Coordinate

// Region is a half-open byte range [Offset, Offset+Length) of the target
// file.
type Region = mapping.Region

// PixelState is the aggregate of every successful sample of one pixel.
// A pixel with Count == 0 is unknown.
type PixelState = grid.State

// Score bounds.
const (
	// MinScore is the score of a window whose bytes are all equal.
	MinScore = entropy.MinScore

	// MaxScore is the score of a window whose bytes are all distinct.
	MaxScore = entropy.MaxScore
)
