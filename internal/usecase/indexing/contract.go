package indexing

import (
	"context"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/domain/record"
)

// Fetcher returns the trimmed plain text of a document.
type Fetcher interface {
	Fetch(ctx context.Context, documentID string) (string, error)
}

// ChunkEmbedder embeds chunks one vector per chunk, preserving order.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []string) ([][]float32, error)
}

// IndexStore persists per-(client, category) indexes.
type IndexStore interface {
	Clear() error
	CreateOrAppend(
		ctx context.Context, client string, cat domain.Category,
		records []domain.ChunkRecord, vectors [][]float32,
	) (domain.IndexStats, error)
	Replace(
		ctx context.Context, client string, cat domain.Category,
		records []domain.ChunkRecord, vectors [][]float32,
	) (domain.IndexStats, error)
	WriteRecords(client string, projects []record.Project) error
}
