package vectorstore

import (
	"cmp"
	"fmt"
	"slices"

	"document-qa/internal/models"
)

// FlatIndex is an exact nearest-neighbour index over contiguous float32
// vectors. Positions are dense and stable: vector i is the i-th one added.
type FlatIndex struct {
	dim  int
	data []float32
}

// Neighbor is one search result: a position in the index and its squared L2
// distance to the query.
type Neighbor struct {
	Position int
	Distance float32
}

func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

func (x *FlatIndex) Dimension() int { return x.dim }

func (x *FlatIndex) Len() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.data) / x.dim
}

// Add appends vectors in order. An empty index without a dimension adopts the
// dimension of the first vector.
func (x *FlatIndex) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if x.dim == 0 && len(x.data) == 0 {
			x.dim = len(v)
		}
		if len(v) != x.dim || x.dim == 0 {
			return fmt.Errorf("vector %d has dimension %d, index expects %d: %w", i, len(v), x.dim, models.ErrDimensionMismatch)
		}
	}
	for _, v := range vectors {
		x.data = append(x.data, v...)
	}
	return nil
}

// Vector returns a copy of the vector at position i.
func (x *FlatIndex) Vector(i int) []float32 {
	out := make([]float32, x.dim)
	copy(out, x.data[i*x.dim:(i+1)*x.dim])
	return out
}

func (x *FlatIndex) Clone() *FlatIndex {
	data := make([]float32, len(x.data))
	copy(data, x.data)
	return &FlatIndex{dim: x.dim, data: data}
}

// Search returns up to k positions ordered by ascending squared L2 distance.
// Equal distances keep insertion order.
func (x *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d: %w", len(query), x.dim, models.ErrDimensionMismatch)
	}
	n := x.Len()
	if k <= 0 || n == 0 {
		return []Neighbor{}, nil
	}

	all := make([]Neighbor, n)
	for i := range n {
		all[i] = Neighbor{Position: i, Distance: squaredL2(query, x.data[i*x.dim:(i+1)*x.dim])}
	}
	slices.SortStableFunc(all, func(a, b Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return all[:min(k, n)], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
