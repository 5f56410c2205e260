package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/clientrag/internal/domain"
)

// DocumentEntry is one descriptor in the documents file.
type DocumentEntry struct {
	Client     string `yaml:"client"`
	DocumentID string `yaml:"document_id"`
	Category   string `yaml:"category"`
}

type documentsFile struct {
	Documents []DocumentEntry `yaml:"documents"`
}

// LoadDocuments reads the static descriptor list. A missing category means primary.
func LoadDocuments(path string) ([]domain.Descriptor, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read documents %s: %w", path, err)
	}
	return ParseDocuments(data)
}

// ParseDocuments decodes a descriptor list. Unknown categories are left for the indexer to reject.
func ParseDocuments(data []byte) ([]domain.Descriptor, error) {
	var f documentsFile
	if err := yaml.Unmarshal(expandEnvVars(data), &f); err != nil {
		return nil, fmt.Errorf("failed to parse documents: %w", err)
	}

	out := make([]domain.Descriptor, 0, len(f.Documents))
	for i, e := range f.Documents {
		client := strings.TrimSpace(e.Client)
		id := strings.TrimSpace(e.DocumentID)
		if client == "" {
			return nil, fmt.Errorf("documents[%d]: client is required", i)
		}
		if id == "" {
			return nil, fmt.Errorf("documents[%d]: document_id is required", i)
		}
		cat := domain.Category(strings.TrimSpace(e.Category))
		if cat == "" {
			cat = domain.Primary
		}
		out = append(out, domain.Descriptor{Client: client, DocumentID: id, Category: cat})
	}
	return out, nil
}
