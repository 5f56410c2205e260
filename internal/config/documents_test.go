package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/clientrag/internal/domain"
)

func TestParseDocuments(t *testing.T) {
	data := []byte(`
documents:
  - client: acme
    document_id: doc-1
  - client: acme
    document_id: doc-2
    category: faq
  - client: " beta "
    document_id: doc-3
    category: crm
`)
	docs, err := ParseDocuments(data)
	if err != nil {
		t.Fatalf("ParseDocuments: %v", err)
	}
	want := []domain.Descriptor{
		{Client: "acme", DocumentID: "doc-1", Category: domain.Primary},
		{Client: "acme", DocumentID: "doc-2", Category: domain.FAQ},
		{Client: "beta", DocumentID: "doc-3", Category: domain.CRM},
	}
	if len(docs) != len(want) {
		t.Fatalf("expected %d docs, got %d", len(want), len(docs))
	}
	for i := range want {
		if docs[i] != want[i] {
			t.Errorf("doc %d: expected %+v, got %+v", i, want[i], docs[i])
		}
	}
}

func TestParseDocuments_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing client", "documents:\n  - document_id: x\n", "client is required"},
		{"missing id", "documents:\n  - client: acme\n", "document_id is required"},
		{"bad yaml", "documents: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocuments([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.yaml")
	if err := os.WriteFile(path, []byte("documents:\n  - client: acme\n    document_id: d1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	docs, err := LoadDocuments(path)
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Category != domain.Primary {
		t.Errorf("unexpected docs: %+v", docs)
	}

	if _, err := LoadDocuments(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
