package clientrag

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Category binds a specialised category name to the suffix of its index files.
type Category struct {
	Name   string
	Suffix string
}

type clientConfig struct {
	indexDir string

	embedder Embedder
	fetcher  Fetcher

	chunkSize    int
	hnswM        int
	hnswEFSearch int
	cacheSize    int
	workers      int
	defaultK     int
	parseRecords bool
	categories   []Category

	retryAttempts int
	retryDelay    time.Duration
	retryJitter   time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithIndexDir sets the directory holding the index files. Required.
func WithIndexDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDir = dir
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithFetcher sets the document source used by RebuildAll and Append.
func WithFetcher(f Fetcher) Option {
	return optionFunc(func(c *clientConfig) {
		c.fetcher = f
	})
}

// WithChunkSize sets the maximum chunk length in characters.
// Default: 5000. Changing it for an existing directory requires a full rebuild.
func WithChunkSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = n
	})
}

// WithHNSW configures the graph degree and the search beam width.
// Defaults: M=32, EFSearch=64.
func WithHNSW(m, efSearch int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFSearch = efSearch
	})
}

// WithCacheSize bounds the number of indexes kept in memory between calls.
// Default: 256.
func WithCacheSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = n
	})
}

// WithWorkers bounds parallel fetch and embedding work. Default: 8.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithDefaultK sets the per-category result count used when Search gets k <= 0.
// Default: 5.
func WithDefaultK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultK = k
	})
}

// WithRecords enables parsing structured project records out of primary documents.
func WithRecords() Option {
	return optionFunc(func(c *clientConfig) {
		c.parseRecords = true
	})
}

// WithRetry configures the backoff for fetch and quota-limited embedding calls.
// Defaults: 5 attempts, 2s base delay, up to 1s of jitter.
func WithRetry(maxAttempts int, baseDelay, jitter time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retryAttempts = maxAttempts
		c.retryDelay = baseDelay
		c.retryJitter = jitter
	})
}

// WithCategories replaces the specialised category set, in indexing order.
// The primary category is implicit and must not be listed.
func WithCategories(categories ...Category) Option {
	return optionFunc(func(c *clientConfig) {
		c.categories = categories
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
