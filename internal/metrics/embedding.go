package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding provider metrics. Provider calls are counted per chunk; the
// averaging layer above them only reports how many chunks a text split into.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Provider embedding calls by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Failed provider calls by error class (quota, timeout, empty_response, ...)",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Subsystem: "embedding",
			Name:      "retries_total",
			Help:      "Chunk embeddings retried after a quota error",
		},
		[]string{"provider"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clientrag",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Latency of successful provider calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Tokens billed by the provider",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "total"
	)

	EmbeddingChunksPerText = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clientrag",
			Subsystem: "embedding",
			Name:      "chunks_per_text",
			Help:      "Chunks a text was split into before its vectors were averaged",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50},
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Chunk vector cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the embedding collectors with the default registry.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingErrorsTotal,
		EmbeddingRetriesTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingChunksPerText,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}
