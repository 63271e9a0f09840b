// Package entropy scores byte windows by how many distinct values they hold.
//
// The score is a cheap diversity proxy, not Shannon entropy: a window of
// identical bytes scores MinScore and a window where every byte differs
// scores MaxScore. Scoring is O(len(window)) and allocation-free.
package entropy

import "math/bits"

// Score bounds.
const (
	// Levels is the number of discrete score buckets.
	Levels = 8

	// MinScore is the score of a window with a single distinct byte value.
	MinScore = 1

	// MaxScore is the score of a window whose bytes are all distinct.
	MaxScore = Levels
)

// Distinct returns the number of distinct byte values in p.
func Distinct(p []byte) int {
	var set [4]uint64
	for _, b := range p {
		set[b>>6] |= 1 << (b & 63)
	}
	return bits.OnesCount64(set[0]) + bits.OnesCount64(set[1]) +
		bits.OnesCount64(set[2]) + bits.OnesCount64(set[3])
}

// Bucket maps a distinct count onto [MinScore, MaxScore].
// maxDistinct is the largest count the window could reach, min(len, 256).
// For an 8-byte window the bucket equals the distinct count.
func Bucket(distinct, maxDistinct int) int {
	if maxDistinct <= 1 || distinct <= 1 {
		return MinScore
	}
	if distinct > maxDistinct {
		distinct = maxDistinct
	}
	span := maxDistinct - 1
	return MinScore + ((distinct-1)*(Levels-1)+span/2)/span
}

// Score returns the diversity score of p.
// It returns false for an empty window; an empty window has no score.
func Score(p []byte) (int, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return Bucket(Distinct(p), min(len(p), 256)), true
}
