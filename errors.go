package densitymap

import (
	"errors"

	"github.com/gogpu/densitymap/internal/source"
)

// Errors returned by sessions.
var (
	// ErrSourceUnavailable is returned by Start when the target file cannot
	// be opened or is not a regular file. The underlying os error is
	// wrapped alongside it.
	ErrSourceUnavailable = source.ErrUnavailable

	// ErrSessionClosed is returned by queries on a canceled session.
	ErrSessionClosed = errors.New("densitymap: session closed")

	// ErrOutOfBounds is returned for coordinates outside the grid.
	ErrOutOfBounds = errors.New("densitymap: coordinate out of bounds")

	// ErrInvalidOptions is returned when options are out of range.
	ErrInvalidOptions = errors.New("densitymap: invalid options")
)
