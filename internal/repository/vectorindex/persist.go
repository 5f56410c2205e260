package vectorindex

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
	"github.com/google/renameio"

	"github.com/kailas-cloud/clientrag/internal/domain"
)

const (
	indexExt      = ".hnsw"
	docstoreExt   = "_docstore.gob"
	docstoreVer   = 1
	recordsSuffix = "_records.json"
)

// docstoreFile is the gob payload of a chunk map file.
type docstoreFile struct {
	Version  int
	Client   string
	Category string
	NextKey  uint64
	Dim      int
	Entries  map[uint64]domain.ChunkRecord
}

// writeAtomic writes path through a temp file in the same directory,
// fsyncs it and renames it over the target.
func writeAtomic(path string, write func(w io.Writer) error) error {
	f, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	defer f.Cleanup() //nolint:errcheck // no-op after a successful replace

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeGraph(path string, ix *Index) error {
	return writeAtomic(path, ix.graph.Export)
}

func writeDocstore(path string, ix *Index) error {
	payload := docstoreFile{
		Version:  docstoreVer,
		Client:   ix.Client,
		Category: string(ix.Category),
		NextKey:  ix.nextKey,
		Dim:      ix.dim,
		Entries:  ix.entries,
	}
	return writeAtomic(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(&payload)
	})
}

func readGraph(path string, m, efSearch int) (*hnsw.Graph[uint64], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers test for fs.ErrNotExist
	}
	defer f.Close()

	g := newGraph(m, efSearch)
	if err := g.Import(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("import graph %s: %w", filepath.Base(path), err)
	}
	g.EfSearch = efSearch
	return g, nil
}

func readDocstore(path string) (*docstoreFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers test for fs.ErrNotExist
	}
	defer f.Close()

	var payload docstoreFile
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode docstore %s: %w", filepath.Base(path), err)
	}
	if payload.Version != docstoreVer {
		return nil, fmt.Errorf("docstore %s: unsupported version %d", filepath.Base(path), payload.Version)
	}
	if payload.Entries == nil {
		payload.Entries = make(map[uint64]domain.ChunkRecord)
	}
	return &payload, nil
}

func fileExists(path string) (bool, error) {
	info, err := statFile(path)
	return info != nil, err
}

// fileStamp identifies the on-disk files behind a cached index. Atomic writes
// replace the inode, so any rewrite changes the stamp.
type fileStamp struct {
	graph os.FileInfo
	doc   os.FileInfo
}

func (a fileStamp) equal(b fileStamp) bool {
	return sameFile(a.graph, b.graph) && sameFile(a.doc, b.doc)
}

func sameFile(a, b os.FileInfo) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return os.SameFile(a, b) && a.ModTime().Equal(b.ModTime()) && a.Size() == b.Size()
}

// statFile returns nil info for a missing file.
func statFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // absence is part of the stamp
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	return info, nil
}

func statIndexFiles(graphPath, docPath string) (fileStamp, error) {
	g, err := statFile(graphPath)
	if err != nil {
		return fileStamp{}, err
	}
	d, err := statFile(docPath)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{graph: g, doc: d}, nil
}
