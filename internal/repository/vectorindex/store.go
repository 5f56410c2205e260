package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/metrics"
)

// DefaultExactScanMax is the largest index searched by scoring every chunk.
const DefaultExactScanMax = 4096

// Options tunes a Store. Zero values fall back to domain.DefaultIndexConfig.
type Options struct {
	Categories domain.CategorySet
	M          int
	EfSearch   int
	CacheSize  int
	Logger     *zap.Logger

	// ExactScanMax bounds exhaustive search; 0 means DefaultExactScanMax and a
	// negative value always searches the graph.
	ExactScanMax int
}

type indexKey struct {
	client   string
	category domain.Category
}

func (k indexKey) String() string { return k.client + "/" + string(k.category) }

// Store owns the index directory. Reads may run concurrently with each other;
// writes to the same (client, category) are serialized in-process. Cached
// indexes and records are reread once their files change on disk, so a
// serving process picks up rebuilds run by another process.
type Store struct {
	dir        string
	categories domain.CategorySet
	m          int
	efSearch   int
	exactMax   int
	logger     *zap.Logger

	cache   *lru.Cache[indexKey, *Index]
	records *lru.Cache[string, cachedRecords]
	loads   singleflight.Group

	locksMu sync.Mutex
	locks   map[indexKey]*sync.Mutex
}

// New opens (creating if needed) an index directory.
func New(dir string, opts Options) (*Store, error) {
	if dir == "" {
		return nil, errors.New("index directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	d := domain.DefaultIndexConfig()
	if opts.M <= 0 {
		opts.M = d.HNSWM
	}
	if opts.EfSearch <= 0 {
		opts.EfSearch = d.EFSearch
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = d.CacheSize
	}
	if opts.Categories.Len() == 0 {
		opts.Categories = domain.DefaultCategories()
	}
	switch {
	case opts.ExactScanMax == 0:
		opts.ExactScanMax = DefaultExactScanMax
	case opts.ExactScanMax < 0:
		opts.ExactScanMax = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cache, err := lru.New[indexKey, *Index](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("index cache: %w", err)
	}
	records, err := lru.New[string, cachedRecords](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("records cache: %w", err)
	}

	return &Store{
		dir:        dir,
		categories: opts.Categories,
		m:          opts.M,
		efSearch:   opts.EfSearch,
		exactMax:   opts.ExactScanMax,
		logger:     opts.Logger,
		cache:      cache,
		records:    records,
		locks:      make(map[indexKey]*sync.Mutex),
	}, nil
}

// Dir returns the index directory.
func (s *Store) Dir() string { return s.dir }

// Categories returns the configured category set.
func (s *Store) Categories() domain.CategorySet { return s.categories }

// BaseName returns the file stem for (client, category): "<client>" or "<client>_<suffix>".
func (s *Store) BaseName(client string, cat domain.Category) (string, error) {
	if err := s.categories.ValidateClient(client); err != nil {
		return "", err
	}
	suffix, err := s.categories.Suffix(cat)
	if err != nil {
		return "", err
	}
	if suffix == "" {
		return client, nil
	}
	return client + "_" + suffix, nil
}

func (s *Store) paths(client string, cat domain.Category) (graphPath, docPath string, err error) {
	base, err := s.BaseName(client, cat)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.dir, base+indexExt), filepath.Join(s.dir, base+docstoreExt), nil
}

// Exists reports whether a graph file is persisted for (client, category).
func (s *Store) Exists(client string, cat domain.Category) (bool, error) {
	graphPath, _, err := s.paths(client, cat)
	if err != nil {
		return false, err
	}
	return fileExists(graphPath)
}

// Load returns the index for (client, category), reading it from disk on first use
// and again whenever its files were rewritten since.
// A missing graph file yields domain.ErrIndexNotFound. A graph without its chunk map
// loads as a degraded index with an empty map.
func (s *Store) Load(ctx context.Context, client string, cat domain.Category) (*Index, error) {
	key := indexKey{client: client, category: cat}
	if ix, ok := s.cache.Get(key); ok {
		if s.current(ix) {
			metrics.IndexCacheTotal.WithLabelValues("hit").Inc()
			return ix, nil
		}
		s.cache.Remove(key)
		metrics.IndexCacheTotal.WithLabelValues("stale").Inc()
	} else {
		metrics.IndexCacheTotal.WithLabelValues("miss").Inc()
	}

	ch := s.loads.DoChan(key.String(), func() (any, error) {
		if ix, ok := s.cache.Get(key); ok && s.current(ix) {
			return ix, nil
		}
		ix, err := s.read(client, cat)
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, ix)
		return ix, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Index), nil
	}
}

// current reports whether ix still matches the files on disk.
func (s *Store) current(ix *Index) bool {
	graphPath, docPath, err := s.paths(ix.Client, ix.Category)
	if err != nil {
		return false
	}
	stamp, err := statIndexFiles(graphPath, docPath)
	return err == nil && stamp.graph != nil && stamp.equal(ix.stamp)
}

// read loads (client, category) from disk, bypassing the cache.
func (s *Store) read(client string, cat domain.Category) (*Index, error) {
	graphPath, docPath, err := s.paths(client, cat)
	if err != nil {
		return nil, err
	}

	// Stamped before reading: a write racing the read only causes one extra reload.
	stamp, err := statIndexFiles(graphPath, docPath)
	if err != nil {
		return nil, err
	}
	graph, err := readGraph(graphPath, s.m, s.efSearch)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrIndexNotFound, client, cat)
		}
		return nil, err
	}

	ix := &Index{
		Client:   client,
		Category: cat,
		graph:    graph,
		nextKey:  uint64(graph.Len()),
		dim:      graph.Dims(),
		exactMax: s.exactMax,
		stamp:    stamp,
	}

	doc, err := readDocstore(docPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("index present without docstore, serving empty results",
			zap.String("client", client),
			zap.String("category", string(cat)),
			zap.String("path", docPath),
		)
		ix.entries = make(map[uint64]domain.ChunkRecord)
		ix.degraded = true
		return ix, nil
	case err != nil:
		return nil, err
	}

	ix.entries = doc.Entries
	if doc.NextKey > ix.nextKey {
		ix.nextKey = doc.NextKey
	}
	if ix.dim == 0 {
		ix.dim = doc.Dim
	}
	if len(ix.entries) != graph.Len() {
		s.logger.Warn("docstore size differs from vector count",
			zap.String("client", client),
			zap.String("category", string(cat)),
			zap.Int("docstore", len(ix.entries)),
			zap.Int("vectors", graph.Len()),
		)
	}
	return ix, nil
}

// Save writes ix to its paired files, chunk map first.
// A crash between the two renames leaves a chunk map that is ahead of the graph,
// which never causes key reuse on the next append.
func (s *Store) Save(ix *Index) error {
	graphPath, docPath, err := s.paths(ix.Client, ix.Category)
	if err != nil {
		return err
	}
	if err := writeDocstore(docPath, ix); err != nil {
		return err
	}
	return writeGraph(graphPath, ix)
}

// CreateOrAppend appends chunks to the persisted index for (client, category), creating
// it when absent. Keys continue from the previous maximum and are never reused.
// The updated index is persisted before it becomes visible to Load.
func (s *Store) CreateOrAppend(
	ctx context.Context, client string, cat domain.Category,
	records []domain.ChunkRecord, vectors [][]float32,
) (domain.IndexStats, error) {
	unlock := s.lock(indexKey{client: client, category: cat})
	defer unlock()

	base, err := s.read(client, cat)
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		base = newIndex(client, cat, s.m, s.efSearch, s.exactMax)
	case err != nil:
		return domain.IndexStats{}, fmt.Errorf("load %s/%s: %w", client, cat, err)
	case base.Degraded():
		// Vectors without chunks can never be returned; start over but keep the key sequence.
		s.logger.Warn("discarding vectors of index without docstore",
			zap.String("client", client),
			zap.String("category", string(cat)),
			zap.Int("vectors", base.VectorCount()),
		)
		orphaned := base.nextKey
		base = newIndex(client, cat, s.m, s.efSearch, s.exactMax)
		base.nextKey = orphaned
	}
	return s.commit(ctx, base, records, vectors)
}

// Replace builds a fresh index for (client, category) from scratch, discarding prior state.
func (s *Store) Replace(
	ctx context.Context, client string, cat domain.Category,
	records []domain.ChunkRecord, vectors [][]float32,
) (domain.IndexStats, error) {
	if _, err := s.BaseName(client, cat); err != nil {
		return domain.IndexStats{}, err
	}
	unlock := s.lock(indexKey{client: client, category: cat})
	defer unlock()

	return s.commit(ctx, newIndex(client, cat, s.m, s.efSearch, s.exactMax), records, vectors)
}

func (s *Store) commit(
	ctx context.Context, base *Index,
	records []domain.ChunkRecord, vectors [][]float32,
) (domain.IndexStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.IndexStats{}, err
	}
	next, err := base.withAppended(records, vectors)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("%s/%s: %w", base.Client, base.Category, err)
	}
	if err := s.Save(next); err != nil {
		return domain.IndexStats{}, fmt.Errorf("save %s/%s: %w", base.Client, base.Category, err)
	}
	key := indexKey{client: next.Client, category: next.Category}
	graphPath, docPath, _ := s.paths(next.Client, next.Category)
	if next.stamp, err = statIndexFiles(graphPath, docPath); err == nil {
		s.cache.Add(key, next)
	} else {
		s.cache.Remove(key)
	}

	metrics.IndexedChunksTotal.WithLabelValues(string(next.Category)).Add(float64(len(records)))
	s.logger.Info("index saved",
		zap.String("client", next.Client),
		zap.String("category", string(next.Category)),
		zap.Int("added", len(records)),
		zap.Int("total", next.Len()),
	)
	return next.Stats(len(records)), nil
}

// Search returns up to k nearest chunks of (client, category).
// A missing index yields domain.ErrIndexNotFound, a graph without its chunk map
// domain.ErrDocstoreMissing.
func (s *Store) Search(
	ctx context.Context, client string, cat domain.Category, vec []float32, k int,
) ([]domain.ChunkRecord, error) {
	ix, err := s.Load(ctx, client, cat)
	if err != nil {
		return nil, err
	}
	if ix.Degraded() {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrDocstoreMissing, client, cat)
	}
	return ix.Search(vec, k)
}

// Clear deletes every regular file in the index directory and empties the cache.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read index dir: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	s.cache.Purge()
	s.records.Purge()
	s.logger.Info("index directory cleared", zap.String("dir", s.dir), zap.Int("files", len(entries)))
	return nil
}

func (s *Store) lock(key indexKey) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Ping reports whether the index directory is still a readable directory.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("index dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("index dir %s is not a directory", s.dir)
	}
	return nil
}
