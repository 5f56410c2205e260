package domain

// IndexDefaults holds the tuning values an index is built with when nothing overrides them.
type IndexDefaults struct {
	ChunkSize int
	HNSWM     int
	EFSearch  int
	TopK      int
	Workers   int
	CacheSize int
}

// DefaultIndexConfig returns the defaults used across the indexing pipeline.
// ChunkSize and HNSWM must not change for directories built by earlier runs:
// chunk boundaries and graph degree are baked into persisted indexes.
func DefaultIndexConfig() IndexDefaults {
	return IndexDefaults{
		ChunkSize: 5000,
		HNSWM:     32,
		EFSearch:  64,
		TopK:      5,
		Workers:   8,
		CacheSize: 256,
	}
}
