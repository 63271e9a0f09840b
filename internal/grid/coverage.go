package grid

import (
	"math/bits"
	"sync/atomic"
)

// Coverage records which pixels have received at least one sample, success
// or failure, using an atomic bitmap.
//
// The bitmap uses one bit per pixel, packed into uint64 words (64 pixels per
// word). All methods are safe for concurrent use without external
// synchronization, and Mark is lock-free.
type Coverage struct {
	// words is the bitmap. Bit index = pixel index.
	words []atomic.Uint64

	// covered counts set bits so Full is O(1).
	covered atomic.Int64

	// total is the number of pixels tracked.
	total int
}

// NewCoverage creates a coverage tracker for total pixels, all unmarked.
func NewCoverage(total int) *Coverage {
	if total < 0 {
		total = 0
	}
	return &Coverage{
		words: make([]atomic.Uint64, (total+63)/64),
		total: total,
	}
}

// Mark marks pixel idx as covered. It reports whether this call was the
// first to mark it. Out of range indexes are ignored.
func (c *Coverage) Mark(idx int) bool {
	if idx < 0 || idx >= c.total {
		return false
	}
	mask := uint64(1) << (idx & 63)
	if old := c.words[idx/64].Or(mask); old&mask != 0 {
		return false
	}
	c.covered.Add(1)
	return true
}

// IsMarked reports whether pixel idx has been covered.
func (c *Coverage) IsMarked(idx int) bool {
	if idx < 0 || idx >= c.total {
		return false
	}
	return c.words[idx/64].Load()&(uint64(1)<<(idx&63)) != 0
}

// Covered returns the number of covered pixels.
func (c *Coverage) Covered() int {
	return int(c.covered.Load())
}

// Total returns the number of tracked pixels.
func (c *Coverage) Total() int {
	return c.total
}

// Full reports whether every pixel has been covered.
func (c *Coverage) Full() bool {
	return c.Covered() == c.total
}

// Recount recomputes the covered count from the bitmap. It agrees with
// Covered once all concurrent Marks have returned.
func (c *Coverage) Recount() int {
	n := 0
	for i := range c.words {
		n += bits.OnesCount64(c.words[i].Load())
	}
	return n
}
