// Package indexing builds per-(client, category) indexes from document descriptors.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/clientrag/internal/chunker"
	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/domain/record"
	logpkg "github.com/kailas-cloud/clientrag/internal/logger"
	"github.com/kailas-cloud/clientrag/internal/metrics"
)

// Run modes reported in metrics and logs.
const (
	ModeFull   = "full"
	ModeAppend = "append"
)

// DefaultWorkers bounds parallel fetch and embed work per category.
const DefaultWorkers = 8

// Config configures a Service.
type Config struct {
	Categories domain.CategorySet
	ChunkSize  int
	Workers    int
	// ParseRecords enables the structured-record sidecar for primary documents.
	ParseRecords bool
	Logger       *zap.Logger
}

// Report summarizes one indexing run.
type Report struct {
	Mode      string
	Documents int
	Skipped   int
	Chunks    int
	Indexes   []domain.IndexStats
	Duration  time.Duration
}

// Service runs indexing. At most one run is active per Service.
type Service struct {
	fetcher    Fetcher
	embedder   ChunkEmbedder
	store      IndexStore
	categories domain.CategorySet
	chunkSize  int
	workers    int
	parse      bool
	logger     *zap.Logger
	now        func() time.Time

	running sync.Mutex
}

// New creates an indexing service.
func New(fetcher Fetcher, embedder ChunkEmbedder, store IndexStore, cfg Config) *Service {
	if cfg.Categories.Len() == 0 {
		cfg.Categories = domain.DefaultCategories()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultMaxSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		fetcher:    fetcher,
		embedder:   embedder,
		store:      store,
		categories: cfg.Categories,
		chunkSize:  cfg.ChunkSize,
		workers:    cfg.Workers,
		parse:      cfg.ParseRecords,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source used to infer record statuses.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// RebuildAll clears the index directory and indexes every descriptor.
// Specialised categories are appended in configured order, then each client's
// primary index is rebuilt from scratch. The first fetch or embed failure aborts the run.
func (s *Service) RebuildAll(ctx context.Context, docs []domain.Descriptor) (Report, error) {
	return s.run(ctx, ModeFull, docs)
}

// Append indexes descriptors without clearing the directory. Specialised indexes
// keep their existing chunks; primary indexes of the clients present are replaced.
func (s *Service) Append(ctx context.Context, docs []domain.Descriptor) (Report, error) {
	return s.run(ctx, ModeAppend, docs)
}

func (s *Service) run(ctx context.Context, mode string, docs []domain.Descriptor) (Report, error) {
	if !s.running.TryLock() {
		return Report{}, domain.ErrRebuildInProgress
	}
	defer s.running.Unlock()

	start := time.Now()
	rep := Report{Mode: mode}
	err := s.runLocked(ctx, mode, docs, &rep)
	rep.Duration = time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RebuildDuration.WithLabelValues(mode, status).Observe(rep.Duration.Seconds())

	if err != nil {
		s.logger.Error("indexing run failed", zap.String("mode", mode), zap.Error(err))
		return rep, err
	}
	s.logger.Info("indexing run finished",
		zap.String("mode", mode),
		zap.Int("documents", rep.Documents),
		zap.Int("skipped", rep.Skipped),
		zap.Int("chunks", rep.Chunks),
		zap.Int("indexes", len(rep.Indexes)),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

func (s *Service) runLocked(ctx context.Context, mode string, docs []domain.Descriptor, rep *Report) error {
	if err := s.validate(docs); err != nil {
		return err
	}
	if mode == ModeFull {
		if err := s.store.Clear(); err != nil {
			return fmt.Errorf("clear index dir: %w", err)
		}
	}

	groups := domain.GroupByCategory(docs)
	for _, cat := range s.categories.Specialised() {
		if err := s.indexCategory(ctx, cat, groups[cat], rep); err != nil {
			return fmt.Errorf("index %s: %w", cat, err)
		}
	}
	if err := s.indexPrimary(ctx, groups[domain.Primary], rep); err != nil {
		return fmt.Errorf("index %s: %w", domain.Primary, err)
	}
	return nil
}

// validate rejects the whole batch before anything on disk is touched.
func (s *Service) validate(docs []domain.Descriptor) error {
	for i, d := range docs {
		if err := s.categories.ValidateClient(d.Client); err != nil {
			return fmt.Errorf("descriptor %d: %w", i, err)
		}
		if !s.categories.Has(d.Category) {
			return fmt.Errorf("descriptor %d: %w: %q", i, domain.ErrUnknownCategory, d.Category)
		}
		if strings.TrimSpace(d.DocumentID) == "" {
			return fmt.Errorf("descriptor %d: document id is required", i)
		}
	}
	return nil
}

// prepared is one fetched document, chunked and optionally embedded.
type prepared struct {
	desc    domain.Descriptor
	text    string
	chunks  []string
	vectors [][]float32
}

// prepare fetches and chunks docs in parallel. With embed set, each document's
// chunks are embedded as well. Results keep input order; empty documents have no chunks.
func (s *Service) prepare(ctx context.Context, docs []domain.Descriptor, embed bool) ([]prepared, error) {
	out := make([]prepared, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, d := range docs {
		g.Go(func() error {
			text, err := s.fetcher.Fetch(gctx, d.DocumentID)
			if err != nil {
				return fmt.Errorf("document %s (client %s): %w", d.DocumentID, d.Client, err)
			}
			text = strings.TrimSpace(text)
			p := prepared{desc: d, text: text, chunks: chunker.Split(text, s.chunkSize)}
			if embed && len(p.chunks) > 0 {
				p.vectors, err = s.embedder.EmbedChunks(gctx, p.chunks)
				if err != nil {
					return fmt.Errorf("embed document %s (client %s): %w", d.DocumentID, d.Client, err)
				}
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// indexCategory appends every non-empty document of one specialised category.
// Each client's chunks are appended once, in descriptor order.
func (s *Service) indexCategory(
	ctx context.Context, cat domain.Category, docs []domain.Descriptor, rep *Report,
) error {
	if len(docs) == 0 {
		return nil
	}
	docsPrepared, err := s.prepare(ctx, docs, true)
	if err != nil {
		return err
	}

	type batch struct {
		records []domain.ChunkRecord
		vectors [][]float32
	}
	var clients []string
	batches := make(map[string]*batch)
	for _, p := range docsPrepared {
		if !s.countDocument(cat, p, rep) {
			continue
		}
		b, ok := batches[p.desc.Client]
		if !ok {
			b = &batch{}
			batches[p.desc.Client] = b
			clients = append(clients, p.desc.Client)
		}
		b.records = append(b.records, domain.TextRecords(p.chunks)...)
		b.vectors = append(b.vectors, p.vectors...)
	}

	for _, client := range clients {
		b := batches[client]
		stats, err := s.store.CreateOrAppend(ctx, client, cat, b.records, b.vectors)
		if err != nil {
			return err
		}
		rep.Chunks += stats.Added
		rep.Indexes = append(rep.Indexes, stats)
	}
	return nil
}

// indexPrimary rebuilds each client's primary index from all of its primary documents.
func (s *Service) indexPrimary(ctx context.Context, docs []domain.Descriptor, rep *Report) error {
	var clients []string
	perClient := make(map[string][]domain.Descriptor)
	for _, d := range docs {
		if _, ok := perClient[d.Client]; !ok {
			clients = append(clients, d.Client)
		}
		perClient[d.Client] = append(perClient[d.Client], d)
	}

	for _, client := range clients {
		if err := s.indexPrimaryClient(ctx, client, perClient[client], rep); err != nil {
			return fmt.Errorf("client %s: %w", client, err)
		}
	}
	return nil
}

func (s *Service) indexPrimaryClient(
	ctx context.Context, client string, docs []domain.Descriptor, rep *Report,
) error {
	docsPrepared, err := s.prepare(ctx, docs, false)
	if err != nil {
		return err
	}

	var (
		chunks   []string
		records  []domain.ChunkRecord
		projects []record.Project
	)
	for _, p := range docsPrepared {
		if !s.countDocument(domain.Primary, p, rep) {
			continue
		}
		for _, c := range p.chunks {
			chunks = append(chunks, c)
			records = append(records, domain.ChunkRecord{
				Text:             c,
				SourceDocumentID: p.desc.DocumentID,
				Category:         string(p.desc.Category),
				Client:           client,
			})
		}
		if s.parse {
			projects = append(projects, record.Parse(p.text, s.now())...)
		}
	}
	if len(chunks) == 0 {
		s.logger.Warn("no primary content for client, index left untouched", zap.String("client", client))
		return nil
	}

	vectors, err := s.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	stats, err := s.store.Replace(ctx, client, domain.Primary, records, vectors)
	if err != nil {
		return err
	}
	rep.Chunks += stats.Added
	rep.Indexes = append(rep.Indexes, stats)

	if s.parse {
		if err := s.store.WriteRecords(client, projects); err != nil {
			return fmt.Errorf("write records: %w", err)
		}
		s.logger.Info("structured records written", zap.String("client", client), zap.Int("projects", len(projects)))
	}
	return nil
}

// countDocument records the outcome of one document and reports whether it has content.
func (s *Service) countDocument(cat domain.Category, p prepared, rep *Report) bool {
	rep.Documents++
	if len(p.chunks) == 0 {
		rep.Skipped++
		metrics.IndexedDocumentsTotal.WithLabelValues(string(cat), "skipped").Inc()
		logpkg.ForIndex(s.logger, p.desc.Client, string(cat)).
			Warn("empty document skipped", zap.String("document_id", p.desc.DocumentID))
		return false
	}
	metrics.IndexedDocumentsTotal.WithLabelValues(string(cat), "indexed").Inc()
	return true
}

// IsRetryable reports whether a failed run may succeed if started again later.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrRebuildInProgress) ||
		errors.Is(err, domain.ErrFetchFailed) ||
		errors.Is(err, domain.ErrEmbeddingQuotaExceeded)
}
