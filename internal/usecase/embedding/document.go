// Package embedding turns document text into fixed-size vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/clientrag/internal/chunker"
	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/metrics"
	"github.com/kailas-cloud/clientrag/internal/retry"
)

// DocumentConfig configures a DocumentEmbedder.
type DocumentConfig struct {
	Provider  string
	ChunkSize int
	// Workers bounds parallel chunk embedding inside one call.
	Workers int
	Retry   retry.Policy
	Logger  *zap.Logger
}

// DocumentEmbedder embeds arbitrary-length text: it chunks the text, embeds each
// chunk with retry on quota errors and returns the elementwise mean.
// Safe for concurrent use.
type DocumentEmbedder struct {
	inner     domain.Embedder
	provider  string
	chunkSize int
	workers   int
	policy    retry.Policy
	logger    *zap.Logger

	// dim is the vector width seen first; later vectors must match it.
	dim atomic.Int64
}

// NewDocumentEmbedder wraps a per-chunk embedder.
func NewDocumentEmbedder(inner domain.Embedder, cfg DocumentConfig) *DocumentEmbedder {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultMaxSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultMaxConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &DocumentEmbedder{
		inner:     inner,
		provider:  cfg.Provider,
		chunkSize: cfg.ChunkSize,
		workers:   cfg.Workers,
		policy:    cfg.Retry.Normalize(),
		logger:    cfg.Logger,
	}
}

// ChunkSize returns the chunk width used by Embed.
func (d *DocumentEmbedder) ChunkSize() int { return d.chunkSize }

// Dimension returns the vector width observed so far, or 0 before the first embedding.
func (d *DocumentEmbedder) Dimension() int { return int(d.dim.Load()) }

// Embed implements domain.Embedder. Text longer than the chunk size is split
// and the chunk vectors are averaged. Whitespace-only text is not special-cased;
// the empty string yields domain.ErrEmptyInput.
func (d *DocumentEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	chunks := chunker.Split(text, d.chunkSize)
	if len(chunks) == 0 {
		return domain.EmbeddingResult{}, domain.ErrEmptyInput
	}
	metrics.EmbeddingChunksPerText.Observe(float64(len(chunks)))

	results, err := d.embedAll(ctx, chunks)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	vectors := make([][]float32, len(results))
	out := domain.EmbeddingResult{}
	for i, r := range results {
		vectors[i] = r.Embedding
		out.PromptTokens += r.PromptTokens
		out.TotalTokens += r.TotalTokens
	}
	avg, err := Average(vectors)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	out.Embedding = avg
	return out, nil
}

// EmbedChunks embeds each chunk on its own, in parallel, preserving order.
// Any failure after retries aborts the whole call.
func (d *DocumentEmbedder) EmbedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	results, err := d.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(results))
	for i, r := range results {
		vectors[i] = r.Embedding
	}
	return vectors, nil
}

func (d *DocumentEmbedder) embedAll(ctx context.Context, chunks []string) ([]domain.EmbeddingResult, error) {
	results := make([]domain.EmbeddingResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := d.embedChunk(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *DocumentEmbedder) embedChunk(ctx context.Context, chunk string) (domain.EmbeddingResult, error) {
	res, err := retry.Do(ctx, d.policy, isQuotaError,
		func(ctx context.Context) (domain.EmbeddingResult, error) {
			return d.inner.Embed(ctx, chunk)
		},
		func(attempt int, err error, wait time.Duration) {
			metrics.EmbeddingRetriesTotal.WithLabelValues(d.provider).Inc()
			d.logger.Warn("embedding quota exceeded, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if err := d.checkDim(len(res.Embedding)); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return res, nil
}

func (d *DocumentEmbedder) checkDim(n int) error {
	if n == 0 {
		return fmt.Errorf("empty vector: %w", domain.ErrEmbeddingProviderError)
	}
	if d.dim.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if want := d.dim.Load(); want != int64(n) {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, n, want)
	}
	return nil
}

func isQuotaError(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingQuotaExceeded)
}

// Average returns the elementwise mean of equally sized vectors.
// Sums are accumulated in float64.
func Average(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, domain.ErrEmptyInput
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d, want %d", domain.ErrVectorDimMismatch, i, len(v), dim)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vectors))
	for j, s := range sum {
		out[j] = float32(s / n)
	}
	return out, nil
}
