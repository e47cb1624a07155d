// Package index provides a flat brute-force vector index.
//
// The index performs exhaustive nearest-neighbor search by squared
// Euclidean distance. That is adequate for the small guidance corpora
// remedyd works with (tens of documents); larger corpora would need an
// approximate index.
package index

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for index operations.
var (
	// ErrNotBuilt is returned when searching before Build.
	ErrNotBuilt = errors.New("index not built")

	// ErrDimensionMismatch indicates inconsistent vector dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyVectors indicates empty or nil input vectors.
	ErrEmptyVectors = errors.New("empty or nil vectors")
)

// Flat is a brute-force squared-L2 nearest-neighbor index.
//
// Positions returned by Search refer to the order vectors were given
// to Build, which matches corpus insertion order by construction.
type Flat struct {
	dim     int
	vectors [][]float32
}

// Build constructs the index over exactly the given vectors. All
// vectors must share the same dimension.
func Build(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyVectors
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimension vector at position 0", ErrDimensionMismatch)
	}

	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		stored[i] = append([]float32(nil), v...)
	}

	return &Flat{dim: dim, vectors: stored}, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	if f == nil {
		return 0
	}
	return len(f.vectors)
}

// Dimension returns the vector dimension the index was built with.
func (f *Flat) Dimension() int {
	if f == nil {
		return 0
	}
	return f.dim
}

// Search returns the positions of the k vectors closest to query,
// ordered by ascending squared Euclidean distance. Ties are broken by
// insertion order. k is clamped to the index size.
func (f *Flat) Search(query []float32, k int) ([]int, error) {
	if f == nil || len(f.vectors) == 0 {
		return nil, ErrNotBuilt
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(f.vectors) {
		k = len(f.vectors)
	}

	distances := make([]float32, len(f.vectors))
	for i, v := range f.vectors {
		distances[i] = squaredL2(query, v)
	}

	positions := make([]int, len(f.vectors))
	for i := range positions {
		positions[i] = i
	}
	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(positions, func(a, b int) bool {
		return distances[positions[a]] < distances[positions[b]]
	})

	return positions[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
