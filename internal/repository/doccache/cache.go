// Package doccache keeps built document indexes in memory, one entry per document id.
package doccache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Builder produces the index for a document on a cache miss.
type Builder = func(ctx context.Context) (domain.Index, error)

// Config sets the eviction policy. Zero values mean unbounded size and no expiry.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

// Cache maps document ids to completed indexes.
// Entries are added only after a successful build, so readers never observe a partial index.
type Cache struct {
	entries *expirable.LRU[string, domain.Index]
	group   singleflight.Group
	logger  *zap.Logger

	lookups   *prometheus.CounterVec // label "result": "hit" / "miss"
	evictions prometheus.Counter
	size      prometheus.Gauge
}

// New creates an empty cache.
func New(cfg Config, logger *zap.Logger) *Cache {
	c := &Cache{logger: logger}
	c.entries = expirable.NewLRU[string, domain.Index](cfg.MaxEntries, c.onEvict, cfg.TTL)
	return c
}

// WithMetrics attaches Prometheus collectors. Any of them may be nil.
func (c *Cache) WithMetrics(lookups *prometheus.CounterVec, evictions prometheus.Counter, size prometheus.Gauge) *Cache {
	c.lookups = lookups
	c.evictions = evictions
	c.size = size
	return c
}

type buildResult struct {
	index domain.Index
	hit   bool
}

// GetOrBuild returns the cached index for id, or runs build and caches its result.
// The boolean is true when the index came from the cache or from a concurrent build started
// by another caller. Concurrent misses for the same id share a single build, which keeps the
// initiating caller's values but not its cancellation. A failed build leaves the cache
// unchanged and the error is returned to every waiting caller.
func (c *Cache) GetOrBuild(ctx context.Context, id string, build Builder) (domain.Index, bool, error) {
	if idx, ok := c.entries.Get(id); ok {
		c.incLookup("hit")
		return idx, true, nil
	}

	ran := false
	ch := c.group.DoChan(id, func() (any, error) {
		ran = true
		if idx, ok := c.entries.Get(id); ok {
			return buildResult{index: idx, hit: true}, nil
		}

		idx, err := build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if idx == nil {
			return nil, fmt.Errorf("builder returned nil index for %q", id)
		}
		c.entries.Add(id, idx)
		c.updateSize()
		return buildResult{index: idx}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("wait for index %q: %w", id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			c.incLookup("miss")
			return nil, false, res.Err
		}
		br, _ := res.Val.(buildResult)
		hit := br.hit || !ran
		if hit {
			c.incLookup("hit")
		} else {
			c.incLookup("miss")
		}
		return br.index, hit, nil
	}
}

// Lookup returns the cached index for id or domain.ErrDocumentNotFound.
func (c *Cache) Lookup(_ context.Context, id string) (domain.Index, error) {
	idx, ok := c.entries.Get(id)
	if !ok {
		c.incLookup("miss")
		return nil, fmt.Errorf("document %q: %w", id, domain.ErrDocumentNotFound)
	}
	c.incLookup("hit")
	return idx, nil
}

// Peek returns the cached index without updating recency or lookup metrics.
func (c *Cache) Peek(id string) (domain.Index, bool) {
	return c.entries.Peek(id)
}

// Remove drops id from the cache. Reports whether it was present.
func (c *Cache) Remove(_ context.Context, id string) bool {
	ok := c.entries.Remove(id)
	c.updateSize()
	return ok
}

// Len returns the number of cached documents.
func (c *Cache) Len() int { return c.entries.Len() }

// Keys returns cached document ids from oldest to newest.
func (c *Cache) Keys() []string { return c.entries.Keys() }

// onEvict runs under the LRU lock and must not call back into entries.
func (c *Cache) onEvict(id string, idx domain.Index) {
	if c.evictions != nil {
		c.evictions.Inc()
	}
	if c.size != nil {
		c.size.Dec()
	}
	segments := 0
	if idx != nil {
		segments = idx.Len()
	}
	c.logger.Info("Document index evicted", zap.String("document_id", id), zap.Int("segments", segments))
}

func (c *Cache) incLookup(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

func (c *Cache) updateSize() {
	if c.size != nil {
		c.size.Set(float64(c.entries.Len()))
	}
}
