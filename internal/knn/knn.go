// Package knn implements the brute-force k-nearest-neighbors primitive
// shared by every vector index strategy: squared-L2 distance plus a
// partial argsort returning the k closest candidate positions.
package knn

import "sort"

// SquaredL2 returns the squared Euclidean distance between two equal-length
// vectors. Callers are responsible for ensuring a and b share a length;
// mismatched lengths only compare over the shorter one's range.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Search returns the positions of the k candidates closest to query under
// squared-L2 distance, in ascending distance order, ties broken by
// ascending position. k is clamped to len(candidates); an empty candidate
// set yields an empty result.
func Search(query []float32, candidates [][]float32, k int) []int {
	if k > len(candidates) {
		k = len(candidates)
	}
	if k <= 0 {
		return []int{}
	}

	type scored struct {
		pos  int
		dist float32
	}
	scores := make([]scored, len(candidates))
	for i, c := range candidates {
		scores[i] = scored{pos: i, dist: SquaredL2(query, c)}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].dist < scores[j].dist
	})

	result := make([]int, k)
	for i := 0; i < k; i++ {
		result[i] = scores[i].pos
	}
	return result
}
