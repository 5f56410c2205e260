package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/clientrag/internal/config"
	"github.com/kailas-cloud/clientrag/internal/db"
	dbRedis "github.com/kailas-cloud/clientrag/internal/db/redis"
	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/metrics"
	"github.com/kailas-cloud/clientrag/internal/repository/embcache"
	"github.com/kailas-cloud/clientrag/internal/repository/vectorindex"
	"github.com/kailas-cloud/clientrag/internal/transport/gdocs"
	openaiEmb "github.com/kailas-cloud/clientrag/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/clientrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/clientrag/internal/usecase/health"
	"github.com/kailas-cloud/clientrag/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/clientrag/internal/usecase/search"
)

// app is the composition root shared by every subcommand.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	categories domain.CategorySet

	store        *vectorindex.Store
	cache        db.Store // nil when the embedding cache is disabled
	instrumented *embeddinguc.InstrumentedEmbedder
	embedder     *embeddinguc.DocumentEmbedder
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	categories, err := cfg.Index.CategorySet()
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	store, err := vectorindex.New(cfg.Index.Dir, vectorindex.Options{
		Categories: categories,
		M:          cfg.Index.HNSWM,
		EfSearch:   cfg.Index.HNSWEFSearch,
		CacheSize:  cfg.Index.CacheSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open index dir: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, categories: categories, store: store}
	if err := a.buildEmbedder(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("Index directory ready",
		zap.String("dir", store.Dir()),
		zap.Int("categories", categories.Len()),
		zap.Int("chunk_size", cfg.Index.ChunkSize),
		zap.Int("hnsw_m", cfg.Index.HNSWM),
	)
	return a, nil
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instrumented -> document.
func (a *app) buildEmbedder(ctx context.Context) error {
	ec := a.cfg.Embedding

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:            ec.APIKey,
		BaseURL:           ec.BaseURL,
		Model:             ec.Model,
		Dimensions:        ec.Dimensions,
		Provider:          ec.Provider,
		RequestsPerSecond: ec.RequestsPerSecond,
		Burst:             ec.Burst,
		Logger:            a.logger,
	})

	var inner domain.Embedder = base
	if ec.Cache.Enabled {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    ec.Cache.Addrs,
			Password: ec.Cache.Password,
		})
		if err != nil {
			return fmt.Errorf("create %s cache: %w", ec.Cache.Driver, err)
		}
		timeout := time.Duration(ec.Cache.ReadinessTimeout) * time.Second
		if err := cache.WaitForReady(ctx, timeout); err != nil {
			cache.Close()
			return fmt.Errorf("%s cache not ready: %w", ec.Cache.Driver, err)
		}
		a.cache = cache
		inner = embcache.New(base, cache, embcache.Config{
			Model:      ec.Model,
			TTL:        time.Duration(ec.Cache.TTLHours) * time.Hour,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     a.logger,
		})
		a.logger.Info("Embedding cache enabled",
			zap.String("driver", ec.Cache.Driver),
			zap.Strings("addrs", ec.Cache.Addrs),
		)
	}

	a.instrumented = embeddinguc.NewInstrumentedEmbedder(
		inner, ec.Provider, ec.Model, ec.MaxConcurrency, a.logger,
	)
	a.embedder = embeddinguc.NewDocumentEmbedder(a.instrumented, embeddinguc.DocumentConfig{
		Provider:  ec.Provider,
		ChunkSize: a.cfg.Index.ChunkSize,
		Workers:   ec.MaxConcurrency,
		Retry:     ec.Retry.Policy(),
		Logger:    a.logger,
	})

	a.logger.Info("Embedder created",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions),
	)
	return nil
}

// indexer builds the indexing service with a Google Docs fetcher.
func (a *app) indexer(ctx context.Context) (*indexing.Service, error) {
	fc := a.cfg.Fetcher
	fetcher, err := gdocs.New(ctx, gdocs.Config{
		CredentialsFile:   fc.CredentialsFile,
		CredentialsJSON:   []byte(fc.CredentialsJSON),
		Timeout:           fc.Timeout(),
		RequestsPerSecond: fc.RequestsPerSecond,
		Burst:             fc.Burst,
		Retry:             fc.Retry.Policy(),
		Logger:            a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	return indexing.New(fetcher, a.embedder, a.store, indexing.Config{
		Categories:   a.categories,
		ChunkSize:    a.cfg.Index.ChunkSize,
		Workers:      a.cfg.Index.Workers,
		ParseRecords: a.cfg.Index.ParseRecords,
		Logger:       a.logger,
	}), nil
}

func (a *app) searcher() *searchuc.Service {
	return searchuc.New(a.embedder, a.store, searchuc.Config{
		Categories: a.categories,
		DefaultK:   a.cfg.Index.DefaultK,
		Logger:     a.logger,
	})
}

func (a *app) health() *healthuc.Service {
	// Pass a nil interface, not a typed nil pointer, when the cache is off.
	var cache healthuc.Pinger
	if a.cache != nil {
		cache = a.cache
	}
	return healthuc.New(a.store, a.instrumented, cache)
}

func (a *app) usage() {
	u := a.instrumented.Usage()
	a.logger.Info("Embedding usage",
		zap.Int64("calls", u.Calls),
		zap.Int64("failures", u.Failures),
		zap.Int64("prompt_tokens", u.PromptTokens),
		zap.Int64("total_tokens", u.TotalTokens),
	)
}

// Close releases the cache connection.
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}
