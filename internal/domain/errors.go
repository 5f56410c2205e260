package domain

import "errors"

var (
	// ErrIndexNotFound signals that no persisted index exists for a (client, category) pair.
	ErrIndexNotFound = errors.New("index not found")
	// ErrDocstoreMissing signals an index file whose paired chunk map is absent.
	ErrDocstoreMissing = errors.New("docstore missing")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrLengthMismatch signals chunk and vector lists of different lengths.
	ErrLengthMismatch = errors.New("chunks and vectors length mismatch")
	// ErrEmptyInput signals text with nothing to embed.
	ErrEmptyInput = errors.New("empty input")
	// ErrEmbeddingQuotaExceeded signals a quota or rate limit from the embedding service.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrFetchFailed signals a document store failure.
	ErrFetchFailed = errors.New("document fetch failed")
	// ErrUnknownCategory signals a category outside the configured set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidClient signals a client id unusable as a file-name component.
	ErrInvalidClient = errors.New("invalid client id")
	// ErrRebuildInProgress signals an indexing run already holding the index directory.
	ErrRebuildInProgress = errors.New("indexing run already in progress")
)
