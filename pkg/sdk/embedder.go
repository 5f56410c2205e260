package clientrag

import "context"

// Embedder converts text to a vector. The client chunks long documents itself,
// so Embed only ever sees text up to the configured chunk size.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Fetcher returns the plain text of a document by id.
// Required for RebuildAll and Append; Search works without it.
type Fetcher interface {
	Fetch(ctx context.Context, documentID string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, documentID string) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, documentID string) (string, error) {
	return f(ctx, documentID)
}
