// Package vectorindex persists one HNSW graph plus chunk map per (client, category).
package vectorindex

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/coder/hnsw"

	"github.com/kailas-cloud/clientrag/internal/domain"
)

// Index is one (client, category) graph with its chunk map.
// An Index returned by Store is never mutated afterwards; writers build a new one.
type Index struct {
	Client   string
	Category domain.Category

	graph   *hnsw.Graph[uint64]
	entries map[uint64]domain.ChunkRecord
	nextKey uint64
	dim     int
	// degraded is set when the graph loaded without its chunk map.
	degraded bool
	// exactMax is the largest chunk count searched without the graph.
	exactMax int
	// stamp identifies the files the index was read from or saved to.
	stamp fileStamp
}

func newGraph(m, efSearch int) *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.M = m
	g.EfSearch = efSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

func newIndex(client string, cat domain.Category, m, efSearch, exactMax int) *Index {
	return &Index{
		Client:   client,
		Category: cat,
		graph:    newGraph(m, efSearch),
		entries:  make(map[uint64]domain.ChunkRecord),
		exactMax: exactMax,
	}
}

// Len returns the chunk map size.
func (ix *Index) Len() int { return len(ix.entries) }

// VectorCount returns the number of vectors in the graph.
func (ix *Index) VectorCount() int { return ix.graph.Len() }

// NextKey returns the key the next appended chunk will receive.
func (ix *Index) NextKey() uint64 { return ix.nextKey }

// Dim returns the vector width, or 0 for an empty index.
func (ix *Index) Dim() int { return ix.dim }

// Degraded reports whether the graph was loaded without its chunk map.
func (ix *Index) Degraded() bool { return ix.degraded }

// Stats summarizes the index; added is the size of the write that produced it.
func (ix *Index) Stats(added int) domain.IndexStats {
	return domain.IndexStats{
		Client:   ix.Client,
		Category: ix.Category,
		Added:    added,
		Chunks:   len(ix.entries),
		Vectors:  ix.graph.Len(),
		NextKey:  ix.nextKey,
	}
}

// Record returns the chunk stored under key.
func (ix *Index) Record(key uint64) (domain.ChunkRecord, bool) {
	r, ok := ix.entries[key]
	return r, ok
}

// Keys returns the chunk map keys in ascending order.
func (ix *Index) Keys() []uint64 {
	keys := make([]uint64, 0, len(ix.entries))
	for k := uint64(0); k < ix.nextKey; k++ {
		if _, ok := ix.entries[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Search returns up to k chunk records nearest to vec, nearest first; ties go to
// the older chunk. Indexes of at most exactMax chunks are scanned exhaustively.
// Larger ones take max(k, EfSearch) graph candidates and rank those by their
// true distance, since the graph hands candidates back in heap order.
// Graph hits without a chunk map entry are dropped.
func (ix *Index) Search(vec []float32, k int) ([]domain.ChunkRecord, error) {
	if k <= 0 || ix.graph.Len() == 0 || len(ix.entries) == 0 {
		return []domain.ChunkRecord{}, nil
	}
	if len(vec) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrVectorDimMismatch, len(vec), ix.dim)
	}

	var hits []scoredKey
	if len(ix.entries) <= ix.exactMax {
		hits = ix.scan(vec)
	} else {
		hits = ix.candidates(vec, max(k, ix.graph.EfSearch))
	}
	slices.SortFunc(hits, func(a, b scoredKey) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	out := make([]domain.ChunkRecord, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, ix.entries[h.key])
	}
	return out, nil
}

type scoredKey struct {
	key  uint64
	dist float32
}

// scan scores every chunk that still has a vector in the graph.
func (ix *Index) scan(vec []float32) []scoredKey {
	hits := make([]scoredKey, 0, len(ix.entries))
	for key, rec := range ix.entries {
		if rec.Text == "" {
			continue
		}
		v, ok := ix.graph.Lookup(key)
		if !ok {
			continue
		}
		hits = append(hits, scoredKey{key: key, dist: ix.graph.Distance(vec, v)})
	}
	return hits
}

// candidates scores n graph neighbours that have a chunk map entry.
func (ix *Index) candidates(vec []float32, n int) []scoredKey {
	nodes := ix.graph.Search(vec, n)
	hits := make([]scoredKey, 0, len(nodes))
	for _, node := range nodes {
		if rec, ok := ix.entries[node.Key]; !ok || rec.Text == "" {
			continue
		}
		hits = append(hits, scoredKey{key: node.Key, dist: ix.graph.Distance(vec, node.Value)})
	}
	return hits
}

// withAppended returns a copy-on-write successor holding the extra chunks.
// The receiver must be private to the caller: its graph is reused. The successor
// is never degraded since saving it rewrites the chunk map.
func (ix *Index) withAppended(records []domain.ChunkRecord, vectors [][]float32) (*Index, error) {
	if len(records) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", domain.ErrLengthMismatch, len(records), len(vectors))
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyInput
	}

	dim := ix.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d, want %d", domain.ErrVectorDimMismatch, i, len(v), dim)
		}
	}

	next := &Index{
		Client:   ix.Client,
		Category: ix.Category,
		graph:    ix.graph,
		entries:  maps.Clone(ix.entries),
		nextKey:  ix.nextKey,
		dim:      dim,
		exactMax: ix.exactMax,
	}
	if next.entries == nil {
		next.entries = make(map[uint64]domain.ChunkRecord, len(records))
	}
	nodes := make([]hnsw.Node[uint64], len(vectors))
	for i, v := range vectors {
		key := next.nextKey
		next.nextKey++
		nodes[i] = hnsw.MakeNode(key, v)
		next.entries[key] = records[i]
	}
	next.graph.Add(nodes...)
	return next, nil
}
