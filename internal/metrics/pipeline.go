package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingest, question answering and document cache metrics.
var (
	IngestStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "ingest_stage_duration_seconds",
			Help:      "Time spent in each ingest stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "ingest_total",
			Help:      "Ingest outcomes",
		},
		[]string{"result"}, // "cached" / "hit" / "failed"
	)

	IngestSegments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "ingest_segments",
			Help:      "Segments produced per ingested document",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	AnswerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "answer_total",
			Help:      "Questions answered",
		},
		[]string{"status"},
	)

	AnswerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "answer_duration_seconds",
			Help:      "Language model call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	DocumentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "document_cache_total",
			Help:      "Document index cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	DocumentCacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "document_cache_evictions_total",
			Help:      "Document indexes evicted or removed from the cache",
		},
	)

	DocumentCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Name:      "document_cache_entries",
			Help:      "Document indexes currently cached",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingest, answer and document cache metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestStageDuration)
	prometheus.MustRegister(IngestTotal)
	prometheus.MustRegister(IngestSegments)
	prometheus.MustRegister(AnswerTotal)
	prometheus.MustRegister(AnswerDuration)
	prometheus.MustRegister(DocumentCacheTotal)
	prometheus.MustRegister(DocumentCacheEvictionsTotal)
	prometheus.MustRegister(DocumentCacheEntries)
	pipelineMetricsRegistered = true
}
