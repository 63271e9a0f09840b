package parallel

import "math/rand/v2"

// Partition shuffles a copy of items and splits it into workers chunks of
// ceil(len(items)/workers) elements. Trailing chunks are shorter, and empty
// when there are more workers than items. workers < 1 is treated as 1.
//
// A fresh permutation is drawn on every call so each worker's chunk is
// scattered across the grid and a pass fills the image in random order
// rather than row by row. r must not be shared across goroutines.
func Partition[T any](items []T, workers int, r *rand.Rand) [][]T {
	if workers < 1 {
		workers = 1
	}

	shuffled := make([]T, len(items))
	copy(shuffled, items)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	size := (len(shuffled) + workers - 1) / workers
	chunks := make([][]T, workers)
	for i := range workers {
		lo := min(i*size, len(shuffled))
		hi := min(lo+size, len(shuffled))
		chunks[i] = shuffled[lo:hi:hi]
	}
	return chunks
}
