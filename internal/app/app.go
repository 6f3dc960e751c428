// Package app assembles the document QA pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/chunker"
	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/db"
	dbRedis "github.com/kailas-cloud/docqa/internal/db/redis"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/metrics"
	"github.com/kailas-cloud/docqa/internal/repository/doccache"
	"github.com/kailas-cloud/docqa/internal/repository/embcache"
	openaiTransport "github.com/kailas-cloud/docqa/internal/transport/openai"
	"github.com/kailas-cloud/docqa/internal/transport/pdf"
	embeddinguc "github.com/kailas-cloud/docqa/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	qauc "github.com/kailas-cloud/docqa/internal/usecase/qa"
	"github.com/kailas-cloud/docqa/internal/vectorindex"
)

// App holds the wired services.
type App struct {
	QA       *qauc.Service
	Health   *healthuc.Service
	Identity document.IdentityPolicy
	Cache    *doccache.Cache

	store db.Store
}

// New builds the pipeline. The store is connected only when cfg.Database is enabled.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	identity, err := document.ParseIdentityPolicy(cfg.Cache.Identity)
	if err != nil {
		return nil, fmt.Errorf("cache.identity: %w", err)
	}

	if cfg.Extractor.LicenseKey != "" {
		if err := pdf.SetLicense(cfg.Extractor.LicenseKey); err != nil {
			return nil, err
		}
	}

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	docEmbedder := buildEmbedder(cfg, store, logger)
	// Question vectors are never stored.
	queryEmbedder := buildEmbedder(cfg, nil, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Name),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("store_cache", store != nil),
	)

	answerer := openaiTransport.NewAnswerer(&openaiTransport.AnswererConfig{
		ClientConfig: clientConfig(cfg.LLM.ProviderConfig),
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Timeout:      seconds(cfg.LLM.TimeoutSec),
		Logger:       logger,
	})

	split, err := chunker.New(cfg.Chunking.Size, overlap(cfg.Chunking),
		chunker.WithWordBoundaries(cfg.Chunking.WordBoundary == nil || *cfg.Chunking.WordBoundary))
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("chunker: %w", err)
	}

	cache := doccache.New(doccache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        seconds(cfg.Cache.TTLSec),
	}, logger).WithMetrics(
		metrics.DocumentCacheTotal,
		metrics.DocumentCacheEvictionsTotal,
		metrics.DocumentCacheEntries,
	)

	batcher := embeddinguc.NewBatcher(docEmbedder, logger).
		WithTimeout(seconds(cfg.Embedding.TimeoutSec))

	qa := qauc.New(
		pdf.NewExtractor(logger),
		split,
		batcher,
		vectorindex.FlatBuilder{},
		queryEmbedder,
		answerer,
		cache,
		logger,
	).
		WithTopK(cfg.Retrieval.K).
		WithBatchSize(cfg.Embedding.BatchSize).
		WithQueryTimeout(seconds(cfg.Embedding.TimeoutSec))

	health := healthuc.New().
		WithChecker("embedding", newHealthChecker("embedding", docEmbedder)).
		WithChecker("llm", answerer)
	if store != nil {
		health.WithDatabase(store)
	}

	return &App{
		QA:       qa,
		Health:   health,
		Identity: identity,
		Cache:    cache,
		store:    store,
	}, nil
}

// Close releases the store connection.
func (a *App) Close() {
	closeStore(a.store)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverNone, "":
		logger.Info("Embedding store disabled")
		return nil, nil
	case config.DriverValkey, config.DriverRedis:
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	// Valkey speaks the Redis protocol; only plain string commands are used.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	if err := store.WaitForReady(ctx, seconds(cfg.ReadinessTimeout)); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Driver),
		zap.Strings("addrs", cfg.Addrs),
	)
	return store, nil
}

func closeStore(s db.Store) {
	if s != nil {
		s.Close()
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(cfg *config.Config, store db.KVStore, logger *zap.Logger) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		ClientConfig: clientConfig(cfg.Embedding.ProviderConfig),
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		Provider:     cfg.Embedding.Name,
		Logger:       logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger).
			WithTTL(seconds(cfg.Database.EmbeddingTTLSec))
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Name, cfg.Embedding.Model, logger).
		WithMaxBatchSize(cfg.Embedding.MaxAPIBatch)
}

func clientConfig(p config.ProviderConfig) openaiTransport.ClientConfig {
	return openaiTransport.ClientConfig{
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		APIVersion:  p.APIVersion,
		Deployment:  p.Deployment,
		HTTPTimeout: seconds(p.TimeoutSec),
	}
}

func overlap(c config.ChunkingConfig) int {
	if c.Overlap == nil {
		return chunker.DefaultOverlap
	}
	return *c.Overlap
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// healthChecker wraps domain.Embedder to implement health.Checker.
type healthChecker struct {
	name     string
	embedder domain.Embedder
}

func newHealthChecker(name string, embedder domain.Embedder) *healthChecker {
	return &healthChecker{name: name, embedder: embedder}
}

func (h *healthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check: %w", h.name, err)
		}
	}
	return nil
}
