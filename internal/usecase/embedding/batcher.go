// Package embedding holds the embedding decorators and the ingest batcher.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// DefaultBatchSize is the number of segments sent per provider call during ingest.
const DefaultBatchSize = 200

// Batcher embeds a document's segments in consecutive fixed-size batches.
type Batcher struct {
	embedder domain.Embedder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewBatcher creates a batcher over the embedder chain.
func NewBatcher(embedder domain.Embedder, logger *zap.Logger) *Batcher {
	return &Batcher{embedder: embedder, logger: logger}
}

// WithTimeout bounds each batch call. Zero disables the per-call deadline.
func (b *Batcher) WithTimeout(d time.Duration) *Batcher {
	b.timeout = d
	return b
}

// EmbedAll returns one vector per segment, in segment order.
// batchSize <= 0 means DefaultBatchSize. Any batch failure aborts the whole call.
func (b *Batcher) EmbedAll(ctx context.Context, segments []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	vectors := make([][]float32, 0, len(segments))
	for offset := 0; offset < len(segments); offset += batchSize {
		end := min(offset+batchSize, len(segments))
		batch := segments[offset:end]

		res, err := b.embedBatch(ctx, batch)
		if err != nil {
			b.logger.Error("Embedding batch failed",
				zap.Int("batch_offset", offset),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			return nil, fmt.Errorf("batch at offset %d: %w", offset, err)
		}
		if len(res) != len(batch) {
			return nil, fmt.Errorf("batch at offset %d: got %d vectors for %d segments: %w",
				offset, len(res), len(batch), domain.ErrEmbeddingProviderError)
		}
		vectors = append(vectors, res...)
	}
	return vectors, nil
}

func (b *Batcher) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	callCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	res, err := domain.BatchEmbedOrFallback(callCtx, b.embedder, batch)
	if err == nil {
		return res.Embeddings, nil
	}

	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("embedding call exceeded %s: %w",
			b.timeout, errors.Join(domain.ErrProviderTimeout, domain.ErrEmbeddingProviderError))
	}
	if errors.Is(err, domain.ErrEmbeddingProviderError) || ctx.Err() != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
}
