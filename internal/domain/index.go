package domain

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain/segment"
)

// TextExtractor converts PDF bytes into a single plain-text string.
type TextExtractor interface {
	Extract(ctx context.Context, pdf []byte) (string, error)
}

// Match is a retrieved segment with its distance to the query (lower is closer).
type Match struct {
	Segment  segment.Segment
	Distance float64
}

// Index is an immutable collection of (segment, vector) pairs answering k-NN queries.
// Implementations must be safe for concurrent Search calls.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Match, error)
	Len() int
	Dimensions() int
}

// IndexBuilder creates an Index from segments and their vectors (vectors[i] belongs to segments[i]).
type IndexBuilder interface {
	Build(ctx context.Context, segments []segment.Segment, vectors [][]float32) (Index, error)
}

// Answer is the language model output for one question.
type Answer struct {
	Text string
	Used []segment.Segment
}

// Answerer synthesizes an answer to question from the ordered context segments.
type Answerer interface {
	Answer(ctx context.Context, question string, segments []segment.Segment) (Answer, error)
}
