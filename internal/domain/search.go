package domain

import (
	"encoding/json"

	"github.com/kailas-cloud/clientrag/internal/domain/record"
)

// SearchResult holds the nearest chunks of every category for one query.
// Every configured category is present, possibly with an empty list.
type SearchResult struct {
	Primary    []ChunkRecord
	Records    []record.Project
	Categories map[Category][]string
}

// NewSearchResult returns a result with empty lists for Primary and every category in set.
func NewSearchResult(set CategorySet) SearchResult {
	res := SearchResult{
		Primary:    []ChunkRecord{},
		Records:    []record.Project{},
		Categories: make(map[Category][]string, set.Len()),
	}
	for _, c := range set.Specialised() {
		res.Categories[c] = []string{}
	}
	return res
}

// Empty reports whether no category produced any match.
func (r SearchResult) Empty() bool {
	if len(r.Primary) > 0 || len(r.Records) > 0 {
		return false
	}
	for _, chunks := range r.Categories {
		if len(chunks) > 0 {
			return false
		}
	}
	return true
}

// MarshalJSON flattens the result into one object keyed by category name.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Categories)+2)
	primary := r.Primary
	if primary == nil {
		primary = []ChunkRecord{}
	}
	records := r.Records
	if records == nil {
		records = []record.Project{}
	}
	out[string(Primary)] = primary
	out["records"] = records
	for c, chunks := range r.Categories {
		if chunks == nil {
			chunks = []string{}
		}
		out[string(c)] = chunks
	}
	return json.Marshal(out)
}
