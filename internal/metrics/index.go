package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing and search Prometheus metrics.
var (
	FetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Name:      "fetch_requests_total",
			Help:      "Document fetches by outcome",
		},
		[]string{"status"},
	)

	FetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Name:      "fetch_retries_total",
			Help:      "Document fetches retried after a transient failure",
		},
	)

	IndexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Name:      "indexed_documents_total",
			Help:      "Documents processed by the indexer",
		},
		[]string{"category", "result"}, // "indexed" / "skipped"
	)

	IndexedChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Name:      "indexed_chunks_total",
			Help:      "Chunks written to category indexes",
		},
		[]string{"category"},
	)

	RebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clientrag",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of full and incremental index runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"mode", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clientrag",
			Name:      "search_duration_seconds",
			Help:      "Multi-category search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"status"},
	)

	SearchCategoryMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Name:      "search_category_misses_total",
			Help:      "Category lookups that degraded to an empty result",
		},
		[]string{"category", "reason"},
	)

	IndexCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientrag",
			Name:      "index_cache_total",
			Help:      "Loaded index cache lookups by result: hit, miss or stale",
		},
		[]string{"result"},
	)
)

var indexMetricsRegistered bool

// RegisterIndexMetrics registers Prometheus indexing and search metrics. Must be called once from main.
func RegisterIndexMetrics() {
	if indexMetricsRegistered {
		return
	}
	prometheus.MustRegister(FetchRequestsTotal)
	prometheus.MustRegister(FetchRetriesTotal)
	prometheus.MustRegister(IndexedDocumentsTotal)
	prometheus.MustRegister(IndexedChunksTotal)
	prometheus.MustRegister(RebuildDuration)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchCategoryMissesTotal)
	prometheus.MustRegister(IndexCacheTotal)
	indexMetricsRegistered = true
}
