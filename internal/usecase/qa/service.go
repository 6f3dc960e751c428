// Package qa orchestrates document ingest and question answering.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/domain/ingest"
	"github.com/kailas-cloud/docqa/internal/domain/segment"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// DefaultTopK is the number of segments retrieved per question.
const DefaultTopK = 4

// Ingest result messages.
const (
	MessageProcessed       = "Document processed and ready for questions."
	MessageAlreadyUploaded = "Document already uploaded."
)

// IngestResult describes the outcome of an upload.
type IngestResult struct {
	DocumentID string
	Name       string
	Cached     bool // true if the index already existed
	Segments   int
	Message    string
}

// DocumentInfo is a cached document summary.
type DocumentInfo struct {
	ID         string
	Segments   int
	Dimensions int
}

// Service runs the extract, chunk, embed, index pipeline and answers questions against cached indexes.
type Service struct {
	extractor     Extractor
	chunker       Chunker
	batcher       Batcher
	builder       IndexBuilder
	queryEmbedder Embedder
	answerer      Answerer
	cache         DocumentCache
	logger        *zap.Logger

	batchSize    int
	topK         int
	queryTimeout time.Duration
}

// New creates a QA service.
func New(
	extractor Extractor,
	chunker Chunker,
	batcher Batcher,
	builder IndexBuilder,
	queryEmbedder Embedder,
	answerer Answerer,
	cache DocumentCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		extractor:     extractor,
		chunker:       chunker,
		batcher:       batcher,
		builder:       builder,
		queryEmbedder: queryEmbedder,
		answerer:      answerer,
		cache:         cache,
		logger:        logger,
		topK:          DefaultTopK,
	}
}

// WithTopK sets how many segments are retrieved per question.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// WithBatchSize sets the embedding batch size used during ingest (0 keeps the batcher default).
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithQueryTimeout bounds the question embedding call.
func (s *Service) WithQueryTimeout(d time.Duration) *Service {
	s.queryTimeout = d
	return s
}

// Ingest builds and caches the index for doc. A document id that is already cached is
// returned as is, without re-reading the bytes.
func (s *Service) Ingest(ctx context.Context, doc document.Document) (IngestResult, error) {
	idx, hit, err := s.cache.GetOrBuild(ctx, doc.ID(), func(ctx context.Context) (domain.Index, error) {
		return s.build(ctx, doc)
	})
	if err != nil {
		metrics.IngestTotal.WithLabelValues("failed").Inc()
		return IngestResult{}, fmt.Errorf("ingest %q: %w", doc.ID(), err)
	}

	res := IngestResult{
		DocumentID: doc.ID(),
		Name:       doc.Name(),
		Cached:     hit,
		Segments:   idx.Len(),
		Message:    MessageProcessed,
	}
	if hit {
		res.Message = MessageAlreadyUploaded
		metrics.IngestTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.IngestTotal.WithLabelValues("cached").Inc()
	}
	return res, nil
}

// Ask answers question against the cached index of document id.
func (s *Service) Ask(ctx context.Context, id, question string) (answer.Result, error) {
	if err := validateQuestion(question); err != nil {
		return answer.Result{}, err
	}

	idx, err := s.cache.Lookup(ctx, id)
	if err != nil {
		return answer.Result{}, fmt.Errorf("lookup: %w", err)
	}

	return s.answer(ctx, idx, question)
}

// AskOnce ingests doc into a throwaway index and answers question. The cache is not touched.
func (s *Service) AskOnce(ctx context.Context, doc document.Document, question string) (answer.Result, error) {
	if err := validateQuestion(question); err != nil {
		return answer.Result{}, err
	}

	idx, err := s.build(ctx, doc)
	if err != nil {
		return answer.Result{}, fmt.Errorf("ingest %q: %w", doc.ID(), err)
	}

	return s.answer(ctx, idx, question)
}

// Documents lists cached documents from oldest to newest.
func (s *Service) Documents() []DocumentInfo {
	keys := s.cache.Keys()
	out := make([]DocumentInfo, 0, len(keys))
	for _, id := range keys {
		idx, ok := s.cache.Peek(id)
		if !ok {
			continue // evicted meanwhile
		}
		out = append(out, DocumentInfo{ID: id, Segments: idx.Len(), Dimensions: idx.Dimensions()})
	}
	return out
}

// Forget drops the cached index of document id.
func (s *Service) Forget(ctx context.Context, id string) error {
	if !s.cache.Remove(ctx, id) {
		return fmt.Errorf("document %q: %w", id, domain.ErrDocumentNotFound)
	}
	s.logger.Info("Document index removed", zap.String("document_id", id))
	return nil
}

// build runs Received -> Extracting -> Chunking -> Embedding -> Indexing -> Cached.
// Any failure moves the run to Failed and returns the originating error.
func (s *Service) build(ctx context.Context, doc document.Document) (domain.Index, error) {
	run := ingest.NewRun(doc.ID())
	log := s.logger.With(zap.String("document_id", doc.ID()))

	idx, err := s.runPipeline(ctx, run, doc)
	if err != nil {
		stage := run.State()
		if !stage.Terminal() {
			err = run.Fail(err)
		}
		log.Warn("Ingest failed", zap.Stringer("stage", lastStage(run)), zap.Error(err))
		return nil, err
	}

	for _, st := range []ingest.State{ingest.Extracting, ingest.Chunking, ingest.Embedding, ingest.Indexing} {
		metrics.IngestStageDuration.WithLabelValues(st.String()).Observe(run.StageDuration(st).Seconds())
	}
	metrics.IngestSegments.Observe(float64(idx.Len()))
	log.Info("Document indexed",
		zap.String("name", doc.Name()),
		zap.Int("segments", idx.Len()),
		zap.Int("dimensions", idx.Dimensions()),
	)
	return idx, nil
}

func (s *Service) runPipeline(ctx context.Context, run *ingest.Run, doc document.Document) (domain.Index, error) {
	if err := s.advance(run, ingest.Extracting); err != nil {
		return nil, err
	}
	text, err := s.extractor.Extract(ctx, doc.Content())
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document has no extractable text: %w", domain.ErrExtraction)
	}

	if err := s.advance(run, ingest.Chunking); err != nil {
		return nil, err
	}
	texts := s.chunker.Split(text)
	if len(texts) == 0 {
		return nil, fmt.Errorf("document produced no segments: %w", domain.ErrExtraction)
	}
	segs, err := segment.FromTexts(doc.ID(), doc.Name(), texts)
	if err != nil {
		return nil, fmt.Errorf("build segments: %w", err)
	}

	if err := s.advance(run, ingest.Embedding); err != nil {
		return nil, err
	}
	vectors, err := s.batcher.EmbedAll(ctx, texts, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("embed segments: %w", err)
	}

	if err := s.advance(run, ingest.Indexing); err != nil {
		return nil, err
	}
	idx, err := s.builder.Build(ctx, segs, vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	if err := s.advance(run, ingest.Cached); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *Service) advance(run *ingest.Run, next ingest.State) error {
	from := run.State()
	if err := run.Advance(next); err != nil {
		return err
	}
	s.logger.Debug("Ingest stage",
		zap.String("document_id", run.DocumentID()),
		zap.Stringer("from", from),
		zap.Stringer("to", next),
	)
	return nil
}

// lastStage returns the stage a failed run was in.
func lastStage(run *ingest.Run) ingest.State {
	h := run.History()
	if len(h) == 0 {
		return run.State()
	}
	return h[len(h)-1].From
}

func (s *Service) answer(ctx context.Context, idx domain.Index, question string) (answer.Result, error) {
	q, err := s.embedQuestion(ctx, question)
	if err != nil {
		return answer.Result{}, err
	}

	matches, err := idx.Search(ctx, q, s.topK)
	if err != nil {
		return answer.Result{}, fmt.Errorf("search: %w", err)
	}

	segs := make([]segment.Segment, len(matches))
	for i := range matches {
		segs[i] = matches[i].Segment
	}

	ans, err := s.answerer.Answer(ctx, question, segs)
	if err != nil {
		return answer.Result{}, fmt.Errorf("answer: %w", err)
	}
	return answer.New(ans.Text, ans.Used), nil
}

func (s *Service) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	callCtx := ctx
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	res, err := s.queryEmbedder.Embed(callCtx, question)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("embed question exceeded %s: %w",
				s.queryTimeout, errors.Join(domain.ErrProviderTimeout, domain.ErrEmbeddingProviderError))
		}
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return res.Embedding, nil
}

func validateQuestion(q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("question is required: %w", domain.ErrInvalidInput)
	}
	return nil
}
