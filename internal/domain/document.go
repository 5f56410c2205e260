package domain

// Descriptor identifies one source document to ingest.
type Descriptor struct {
	Client     string
	DocumentID string
	Category   Category
}

// ChunkRecord is a docstore value. Provenance fields are set for the primary
// category only; other categories store the text alone.
type ChunkRecord struct {
	Text             string `json:"text"`
	SourceDocumentID string `json:"source_document_id,omitempty"`
	Category         string `json:"category,omitempty"`
	Client           string `json:"client,omitempty"`
}

// TextRecords wraps plain chunk strings as records without provenance.
func TextRecords(chunks []string) []ChunkRecord {
	out := make([]ChunkRecord, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkRecord{Text: c}
	}
	return out
}

// GroupByCategory splits descriptors per category, keeping input order within each group.
func GroupByCategory(docs []Descriptor) map[Category][]Descriptor {
	out := make(map[Category][]Descriptor)
	for _, d := range docs {
		out[d.Category] = append(out[d.Category], d)
	}
	return out
}

// IndexStats describes a (client, category) index after a write.
type IndexStats struct {
	Client   string
	Category Category
	Added    int
	Chunks   int
	Vectors  int
	NextKey  uint64
}
