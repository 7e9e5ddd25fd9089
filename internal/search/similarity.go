package search

import (
	"math"
)

// SparseVector stores non-zero weights by ascending vocabulary index.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// IsZero reports whether the vector has no weight at all.
func (s SparseVector) IsZero() bool {
	for _, v := range s.Values {
		if v != 0 {
			return false
		}
	}
	return true
}

// CosineSimilarity calculates the cosine similarity between two sparse
// vectors. A zero vector has similarity 0 with everything.
func CosineSimilarity(a, b SparseVector) float64 {
	var dotProduct, normA, normB float64
	for _, v := range a.Values {
		normA += v * v
	}
	for _, v := range b.Values {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dotProduct += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
