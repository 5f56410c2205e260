package health

import "context"

// Pinger reports whether the vector index store (or the embedding cache
// in front of the provider) can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker probes the embedding provider with a minimal request.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
