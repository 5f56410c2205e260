package clientrag

import (
	"errors"

	"github.com/kailas-cloud/clientrag/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrIndexNotFound          = domain.ErrIndexNotFound
	ErrDocstoreMissing        = domain.ErrDocstoreMissing
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrEmptyInput             = domain.ErrEmptyInput
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrFetchFailed            = domain.ErrFetchFailed
	ErrUnknownCategory        = domain.ErrUnknownCategory
	ErrInvalidClient          = domain.ErrInvalidClient
	ErrRebuildInProgress      = domain.ErrRebuildInProgress
)

// ErrFetcherNotConfigured is returned by RebuildAll and Append when no Fetcher was set.
var ErrFetcherNotConfigured = errors.New("clientrag: fetcher not configured (use WithFetcher)")
