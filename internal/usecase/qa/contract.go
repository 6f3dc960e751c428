package qa

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/segment"
)

// Extractor converts PDF bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (string, error)
}

// Chunker splits text into ordered overlapping segments.
type Chunker interface {
	Split(text string) []string
}

// Batcher embeds all segments of one document, preserving order.
type Batcher interface {
	EmbedAll(ctx context.Context, segments []string, batchSize int) ([][]float32, error)
}

// Embedder vectorizes a question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// IndexBuilder creates a searchable index from segments and their vectors.
type IndexBuilder interface {
	Build(ctx context.Context, segments []segment.Segment, vectors [][]float32) (domain.Index, error)
}

// Answerer synthesizes an answer from context segments.
type Answerer interface {
	Answer(ctx context.Context, question string, segments []segment.Segment) (domain.Answer, error)
}

// DocumentCache stores completed indexes by document id.
type DocumentCache interface {
	GetOrBuild(
		ctx context.Context, id string, build func(ctx context.Context) (domain.Index, error),
	) (domain.Index, bool, error)
	Lookup(ctx context.Context, id string) (domain.Index, error)
	Peek(id string) (domain.Index, bool)
	Remove(ctx context.Context, id string) bool
	Keys() []string
}
