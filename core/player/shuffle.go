package player

import "math/rand"

// shuffledIndices returns a Fisher-Yates permutation of {0..n-1} without exclude.
// exclude may be out of range, in which case every index is included.
func shuffledIndices(n, exclude int, rng *rand.Rand) []int {
	if n <= 0 {
		return nil
	}
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i != exclude {
			order = append(order, i)
		}
	}
	for i := len(order) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}
