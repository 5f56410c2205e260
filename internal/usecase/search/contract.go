package search

import (
	"context"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/domain/record"
)

// IndexReader looks up nearest chunks in persisted category indexes.
type IndexReader interface {
	Search(
		ctx context.Context, client string, cat domain.Category, vec []float32, k int,
	) ([]domain.ChunkRecord, error)
	ReadRecords(client string) ([]record.Project, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
