package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/clientrag/internal/domain"
)

// DefaultMaxConcurrency caps in-flight provider calls when nothing else is configured.
const DefaultMaxConcurrency = 8

// Usage is a snapshot of tokens and calls observed by an InstrumentedEmbedder.
type Usage struct {
	Calls        int64
	Failures     int64
	PromptTokens int64
	TotalTokens  int64
}

// InstrumentedEmbedder wraps a provider with a process-wide concurrency cap,
// usage accounting and logging. Transport metrics (requests, duration, tokens)
// are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	sem      *semaphore.Weighted
	logger   *zap.Logger

	calls        atomic.Int64
	failures     atomic.Int64
	promptTokens atomic.Int64
	totalTokens  atomic.Int64
}

// NewInstrumentedEmbedder wraps an embedder. maxConcurrency <= 0 uses DefaultMaxConcurrency.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	maxConcurrency int, logger *zap.Logger,
) *InstrumentedEmbedder {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		sem:      semaphore.NewWeighted(int64(maxConcurrency)),
		logger:   logger,
	}
}

// Embed waits for a concurrency slot, delegates to the inner embedder and records usage.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("acquire embedding slot: %w", err)
	}
	defer p.sem.Release(1)

	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)
	p.calls.Add(1)

	if err != nil {
		p.failures.Add(1)
		p.logger.Debug("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.promptTokens.Add(int64(result.PromptTokens))
	p.totalTokens.Add(int64(result.TotalTokens))

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health: %w", err)
	}
	return nil
}

// Usage returns the counters accumulated since construction.
func (p *InstrumentedEmbedder) Usage() Usage {
	return Usage{
		Calls:        p.calls.Load(),
		Failures:     p.failures.Load(),
		PromptTokens: p.promptTokens.Load(),
		TotalTokens:  p.totalTokens.Load(),
	}
}
