// Package embcache memoises chunk embeddings in the shared key-value store,
// so repeated rebuilds of unchanged documents do not hit the provider again.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clientrag/internal/db"
	"github.com/kailas-cloud/clientrag/internal/domain"
)

const cacheKeyPrefix = "clientrag:emb_cache:"

// Lookup outcomes reported on Config.CacheTotal.
const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultCorrupt = "corrupt"
)

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder wraps a provider embedder. Keys include the model name,
// so vectors from different models never mix.
type CachedEmbedder struct {
	inner  domain.Embedder
	kv     kvStore
	model  string
	ttl    time.Duration
	total  *prometheus.CounterVec
	logger *zap.Logger
}

// Config holds the cache decorator settings.
type Config struct {
	Model string
	// TTL of cached vectors. Zero keeps them until evicted by the server.
	TTL time.Duration
	// CacheTotal counts lookups by "result" label. Optional.
	CacheTotal *prometheus.CounterVec
	Logger     *zap.Logger
}

// New wraps inner with a cache backed by kv.
func New(inner domain.Embedder, kv kvStore, cfg Config) *CachedEmbedder {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:  inner,
		kv:     kv,
		model:  cfg.Model,
		ttl:    cfg.TTL,
		total:  cfg.CacheTotal,
		logger: cfg.Logger,
	}
}

// Embed serves the vector for text from the cache when present. A hit reports
// zero tokens. Cache failures of any kind fall through to the provider.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.store(ctx, key, res.Embedding)
	return res, nil
}

// HealthCheck probes the wrapped provider; the cache itself is checked by the store ping.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := c.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + c.model + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		c.count(resultMiss)
		return nil, false
	case err != nil:
		c.count(resultMiss)
		c.logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	case len(raw) == 0:
		c.count(resultMiss)
		return nil, false
	}

	vec, err := decodeVector(raw)
	if err != nil {
		c.count(resultCorrupt)
		c.logger.Warn("embedding cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	c.count(resultHit)
	return vec, true
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.kv.SetWithTTL(ctx, key, encodeVector(vec), c.ttl); err != nil {
		c.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.total != nil {
		c.total.WithLabelValues(result).Inc()
	}
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("cached vector has %d bytes, not a multiple of 4", len(raw))
	}
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return v, nil
}
