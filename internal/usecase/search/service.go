// Package search answers queries against every category index of a client.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/domain/record"
	logpkg "github.com/kailas-cloud/clientrag/internal/logger"
	"github.com/kailas-cloud/clientrag/internal/metrics"
)

// Config configures a Service.
type Config struct {
	Categories domain.CategorySet
	DefaultK   int
	Logger     *zap.Logger
}

// Service runs multi-category nearest-neighbour search. Safe for concurrent use.
type Service struct {
	embed      Embedder
	indexes    IndexReader
	categories domain.CategorySet
	defaultK   int
	logger     *zap.Logger
}

// New creates a search service.
func New(embed Embedder, indexes IndexReader, cfg Config) *Service {
	if cfg.Categories.Len() == 0 {
		cfg.Categories = domain.DefaultCategories()
	}
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = domain.DefaultIndexConfig().TopK
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		embed:      embed,
		indexes:    indexes,
		categories: cfg.Categories,
		defaultK:   cfg.DefaultK,
		logger:     cfg.Logger,
	}
}

// DefaultK returns the result count used when a caller passes k <= 0.
func (s *Service) DefaultK() int { return s.defaultK }

// Search embeds query once and looks it up in the primary index and every
// specialised index of client. Missing or unreadable indexes yield empty lists;
// only invalid input and a failed query embedding are errors.
func (s *Service) Search(ctx context.Context, client, query string, k int) (domain.SearchResult, error) {
	start := time.Now()
	res, err := s.search(ctx, client, query, k)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) search(ctx context.Context, client, query string, k int) (domain.SearchResult, error) {
	if err := s.categories.ValidateClient(client); err != nil {
		return domain.SearchResult{}, err
	}
	if strings.TrimSpace(query) == "" {
		return domain.SearchResult{}, fmt.Errorf("query: %w", domain.ErrEmptyInput)
	}
	if k <= 0 {
		k = s.defaultK
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("vectorize query: %w", err)
	}

	cats := s.categories.All()
	hits := make([][]domain.ChunkRecord, len(cats))
	var records []record.Project

	var g errgroup.Group
	for i, cat := range cats {
		g.Go(func() error {
			hits[i] = s.lookup(ctx, client, cat, emb.Embedding, k)
			return nil
		})
	}
	g.Go(func() error {
		records = s.records(client)
		return nil
	})
	_ = g.Wait()

	res := domain.NewSearchResult(s.categories)
	res.Records = records
	for i, cat := range cats {
		if cat == domain.Primary {
			res.Primary = hits[i]
			continue
		}
		texts := make([]string, len(hits[i]))
		for j, rec := range hits[i] {
			texts[j] = rec.Text
		}
		res.Categories[cat] = texts
	}
	return res, nil
}

// lookup searches one category, degrading every failure to an empty list.
func (s *Service) lookup(
	ctx context.Context, client string, cat domain.Category, vec []float32, k int,
) []domain.ChunkRecord {
	recs, err := s.indexes.Search(ctx, client, cat, vec, k)
	if err == nil {
		if recs == nil {
			recs = []domain.ChunkRecord{}
		}
		return recs
	}

	log := logpkg.ForIndex(logpkg.FromContextOr(ctx, s.logger), client, string(cat))
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		metrics.SearchCategoryMissesTotal.WithLabelValues(string(cat), "not_found").Inc()
		log.Info("no index for category, returning empty")
	case errors.Is(err, domain.ErrDocstoreMissing):
		metrics.SearchCategoryMissesTotal.WithLabelValues(string(cat), "docstore_missing").Inc()
		log.Warn("index has no chunk map, returning empty")
	default:
		metrics.SearchCategoryMissesTotal.WithLabelValues(string(cat), "error").Inc()
		log.Warn("category search failed, returning empty", zap.Error(err))
	}
	return []domain.ChunkRecord{}
}

func (s *Service) records(client string) []record.Project {
	projects, err := s.indexes.ReadRecords(client)
	if err != nil {
		s.logger.Warn("structured records unreadable, returning empty",
			zap.String("client", client), zap.Error(err))
		return []record.Project{}
	}
	if projects == nil {
		return []record.Project{}
	}
	return projects
}
