// Package source opens target files for concurrent positional reads.
//
// Files are opened read-only and never locked. On Windows the handle is
// opened with full sharing so other processes may keep writing, renaming or
// deleting the file while it is sampled; elsewhere plain open already has
// those semantics. Reads of a file that changes underneath may return stale
// or torn data, which callers treat as an ordinary sample.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Source errors.
var (
	// ErrUnavailable is returned when the file cannot be opened or stat'ed.
	ErrUnavailable = errors.New("source: file unavailable")

	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("source: closed")

	// ErrNotRegular is returned when the path is a directory or device.
	ErrNotRegular = errors.New("source: not a regular file")
)

// ReaderAt is the byte source a sampler consumes.
type ReaderAt interface {
	io.ReaderAt

	// Size returns the current size of the source in bytes.
	Size() (int64, error)
}

// File is a shared, read-only handle to a file on disk.
// ReadAt is safe for concurrent use.
type File struct {
	path string

	mu     sync.RWMutex
	f      *os.File
	closed bool
}

// Open opens path for shared reading.
// Failures wrap ErrUnavailable.
func Open(path string) (*File, error) {
	path = filepath.Clean(path)

	f, err := openShared(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w: %s", ErrUnavailable, ErrNotRegular, path)
	}

	return &File{path: path, f: f}, nil
}

// Path returns the cleaned path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// ReadAt reads len(p) bytes at off. A short read returns io.EOF or
// io.ErrUnexpectedEOF like os.File.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, ErrClosed
	}
	return f.f.ReadAt(p, off)
}

// Size re-stats the file, so growth or truncation by other writers is seen.
func (f *File) Size() (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, ErrClosed
	}
	fi, err := f.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fi.Size(), nil
}

// Close releases the handle. It waits for in-flight reads and is safe to
// call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.f.Close()
}
