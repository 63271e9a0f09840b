package densitymap

import (
	"context"
	"path/filepath"
	"sync"
)

// Engine runs at most one session per file.
//
// Starting a file that already has a session cancels that session and
// waits for it to stop before the new one opens the file, so two sessions
// never sample the same file at once.
type Engine struct {
	opts []Option

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEngine creates an engine whose sessions use opts. Options passed to
// Start are applied after these.
func NewEngine(opts ...Option) *Engine {
	return &Engine{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// sessionKey identifies a file regardless of how its path was spelled.
func sessionKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Start begins a session for path, replacing any session the engine holds
// for the same file.
func (e *Engine) Start(ctx context.Context, path string, opts ...Option) (*Session, error) {
	key := sessionKey(path)

	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, ok := e.sessions[key]; ok {
		delete(e.sessions, key)
		prev.Cancel()
	}

	all := make([]Option, 0, len(e.opts)+len(opts))
	all = append(all, e.opts...)
	all = append(all, opts...)

	s, err := Start(ctx, path, all...)
	if err != nil {
		return nil, err
	}
	e.sessions[key] = s
	return s, nil
}

// Session returns the engine's session for path, or nil.
func (e *Engine) Session(path string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[sessionKey(path)]
}

// Cancel cancels s and forgets it. It returns after s has stopped.
func (e *Engine) Cancel(s *Session) {
	if s == nil {
		return
	}
	key := sessionKey(s.Path())
	e.mu.Lock()
	if e.sessions[key] == s {
		delete(e.sessions, key)
	}
	e.mu.Unlock()
	s.Cancel()
}

// Close cancels every session of the engine.
func (e *Engine) Close() {
	e.mu.Lock()
	sessions := make([]*Session, 0, len(e.sessions))
	for key, s := range e.sessions {
		sessions = append(sessions, s)
		delete(e.sessions, key)
	}
	e.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
}
