// Package vectorindex provides exact in-memory vector indexes.
package vectorindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/segment"
)

// Compile-time checks.
var (
	_ domain.IndexBuilder = FlatBuilder{}
	_ domain.Index        = (*Flat)(nil)
)

// FlatBuilder builds Flat indexes.
type FlatBuilder struct{}

// Build copies segments and vectors into a new immutable Flat index.
func (FlatBuilder) Build(_ context.Context, segments []segment.Segment, vectors [][]float32) (domain.Index, error) {
	return NewFlat(segments, vectors)
}

// Flat is a brute-force squared-L2 index. Immutable after construction.
type Flat struct {
	segments []segment.Segment
	vectors  [][]float32
	dim      int
}

// NewFlat validates pairing and dimensions and returns the index.
func NewFlat(segments []segment.Segment, vectors [][]float32) (*Flat, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("index requires at least one segment: %w", domain.ErrInvalidInput)
	}
	if len(segments) != len(vectors) {
		return nil, fmt.Errorf("segments (%d) and vectors (%d) count mismatch: %w",
			len(segments), len(vectors), domain.ErrVectorDimMismatch)
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("empty vector at 0: %w", domain.ErrVectorDimMismatch)
	}

	segs := make([]segment.Segment, len(segments))
	copy(segs, segments)
	vecs := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has %d dimensions, want %d: %w",
				i, len(v), dim, domain.ErrVectorDimMismatch)
		}
		vecs[i] = append([]float32(nil), v...)
	}

	return &Flat{segments: segs, vectors: vecs, dim: dim}, nil
}

// Len returns the number of indexed segments.
func (f *Flat) Len() int { return len(f.segments) }

// Dimensions returns the vector dimensionality.
func (f *Flat) Dimensions() int { return f.dim }

// Search returns up to k segments by ascending distance. Ties keep insertion order.
func (f *Flat) Search(_ context.Context, query []float32, k int) ([]domain.Match, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(query), f.dim, domain.ErrVectorDimMismatch)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be > 0, got %d: %w", k, domain.ErrInvalidInput)
	}

	matches := make([]domain.Match, len(f.vectors))
	for i, v := range f.vectors {
		matches[i] = domain.Match{Segment: f.segments[i], Distance: squaredL2(query, v)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
