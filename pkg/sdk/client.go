package clientrag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/repository/vectorindex"
	"github.com/kailas-cloud/clientrag/internal/retry"
	"github.com/kailas-cloud/clientrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/clientrag/internal/usecase/health"
	"github.com/kailas-cloud/clientrag/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/clientrag/internal/usecase/search"
)

const sdkProvider = "sdk"

// Internal interfaces for substitution in tests.
type indexingUseCase interface {
	RebuildAll(ctx context.Context, docs []domain.Descriptor) (indexing.Report, error)
	Append(ctx context.Context, docs []domain.Descriptor) (indexing.Report, error)
}

type searchUseCase interface {
	Search(ctx context.Context, client, query string, k int) (domain.SearchResult, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the clientrag SDK entry point. Safe for concurrent use;
// at most one RebuildAll or Append runs at a time.
type Client struct {
	store     *vectorindex.Store
	indexSvc  indexingUseCase
	searchSvc searchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client over an index directory, creating the directory if needed.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.indexDir == "" {
		return nil, errors.New("clientrag: index directory required (use WithIndexDir)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("clientrag: embedder required (use WithEmbedder)")
	}

	categories, err := toCategorySet(cfg.categories)
	if err != nil {
		return nil, fmt.Errorf("clientrag: categories: %w", err)
	}

	store, err := vectorindex.New(cfg.indexDir, vectorindex.Options{
		Categories: categories,
		M:          cfg.hnswM,
		EfSearch:   cfg.hnswEFSearch,
		CacheSize:  cfg.cacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("clientrag: open index dir: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return wireClient(store, categories, cfg, obs), nil
}

func wireClient(store *vectorindex.Store, categories domain.CategorySet, cfg *clientConfig, obs *observer) *Client {
	instrumented := embedding.NewInstrumentedEmbedder(
		&embedderAdapter{inner: cfg.embedder}, sdkProvider, "", cfg.workers, nil,
	)
	docEmb := embedding.NewDocumentEmbedder(instrumented, embedding.DocumentConfig{
		Provider:  sdkProvider,
		ChunkSize: cfg.chunkSize,
		Workers:   cfg.workers,
		Retry:     retryPolicy(cfg),
	})

	c := &Client{
		store: store,
		searchSvc: searchuc.New(docEmb, store, searchuc.Config{
			Categories: categories,
			DefaultK:   cfg.defaultK,
		}),
		healthSvc: healthuc.New(store, instrumented, nil),
		obs:       obs,
	}
	if cfg.fetcher != nil {
		c.indexSvc = indexing.New(cfg.fetcher, docEmb, store, indexing.Config{
			Categories:   categories,
			ChunkSize:    cfg.chunkSize,
			Workers:      cfg.workers,
			ParseRecords: cfg.parseRecords,
		})
	}
	return c
}

func retryPolicy(cfg *clientConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.retryAttempts > 0 {
		p.MaxAttempts = cfg.retryAttempts
	}
	if cfg.retryDelay > 0 {
		p.BaseDelay = cfg.retryDelay
	}
	if cfg.retryJitter > 0 {
		p.Jitter = cfg.retryJitter
	}
	return p
}

// IndexDir returns the directory holding the index files.
func (c *Client) IndexDir() string { return c.store.Dir() }

// Search embeds query once and returns the k nearest chunks from every index of client.
// Missing or unreadable indexes yield empty lists rather than an error.
func (c *Client) Search(ctx context.Context, client, query string, k int) (_ SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "client", client) }()

	res, err := c.searchSvc.Search(ctx, client, query, k)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return fromSearchResult(res), nil
}

// RebuildAll clears the index directory and indexes every document.
func (c *Client) RebuildAll(ctx context.Context, docs []Document) (IndexReport, error) {
	return c.index(ctx, indexing.ModeFull, docs)
}

// Append indexes docs on top of the existing indexes. Primary indexes of the
// clients involved are still rebuilt from the given primary documents.
func (c *Client) Append(ctx context.Context, docs []Document) (IndexReport, error) {
	return c.index(ctx, indexing.ModeAppend, docs)
}

func (c *Client) index(ctx context.Context, mode string, docs []Document) (_ IndexReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe(mode, start, err, "documents", len(docs)) }()

	if c.indexSvc == nil {
		return IndexReport{}, ErrFetcherNotConfigured
	}

	run := c.indexSvc.RebuildAll
	if mode == indexing.ModeAppend {
		run = c.indexSvc.Append
	}
	rep, err := run(ctx, toDescriptors(docs))
	if err != nil {
		return IndexReport{}, fmt.Errorf("%s: %w", mode, err)
	}

	out := fromReport(rep)
	c.obs.indexed(out)
	return out, nil
}

// Health checks the index directory and the embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck delegates to the wrapped embedder when it exposes one.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	hc, ok := a.inner.(interface{ HealthCheck(context.Context) error })
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}
