package vectorindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/domain/record"
)

func (s *Store) recordsPath(client string) (string, error) {
	if err := s.categories.ValidateClient(client); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, client+recordsSuffix), nil
}

// cachedRecords is a parsed sidecar and the file it was parsed from.
type cachedRecords struct {
	info     os.FileInfo
	projects []record.Project
}

// WriteRecords replaces the structured-record sidecar of a client.
func (s *Store) WriteRecords(client string, projects []record.Project) error {
	path, err := s.recordsPath(client)
	if err != nil {
		return err
	}
	if projects == nil {
		projects = []record.Project{}
	}
	defer s.records.Remove(client)
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(projects)
	})
}

// ReadRecords returns the client's structured records, or an empty list when none were written.
// Parsed records are cached until the sidecar changes; callers must not modify them.
func (s *Store) ReadRecords(client string) ([]record.Project, error) {
	path, err := s.recordsPath(client)
	if err != nil {
		return nil, err
	}
	info, err := statFile(path)
	if err != nil {
		return nil, err
	}
	if info == nil {
		s.records.Remove(client)
		return []record.Project{}, nil
	}
	if c, ok := s.records.Get(client); ok && sameFile(c.info, info) {
		return c.projects, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []record.Project{}, nil
		}
		return nil, fmt.Errorf("read records: %w", err)
	}
	var projects []record.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("decode records %s: %w", filepath.Base(path), err)
	}
	if projects == nil {
		projects = []record.Project{}
	}
	s.records.Add(client, cachedRecords{info: info, projects: projects})
	return projects, nil
}
