package vectorstore

import (
	"math"
	"sort"

	"github.com/cloo-solutions/resumatch/internal/domain"
)

// CosineDistance returns 1 - cos(a, b). Vectors of different length or zero norm are at distance 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Rank sorts results by ascending distance, keeping insertion order for ties, and keeps the first k.
func Rank(results []domain.ScoredChunk, k int) []domain.ScoredChunk {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
