package sampler

import (
	"context"
	"sync"
)

// Gate pauses samplers between coordinates. The zero value is open.
type Gate struct {
	mu     sync.Mutex
	paused bool
	open   chan struct{}
}

// Pause closes the gate. Samplers finish their current read and then wait.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.open = make(chan struct{})
	}
}

// Resume opens the gate and releases every waiting sampler.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.open)
	}
}

// Paused reports whether the gate is closed.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait returns immediately when the gate is open, and otherwise blocks until
// Resume or until ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return ctx.Err()
	}
	open := g.open
	g.mu.Unlock()

	select {
	case <-open:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
