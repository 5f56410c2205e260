package clientrag

import "time"

// PrimaryCategory is the category of a document with no Category set.
const PrimaryCategory = "primary"

// Document names one source document to index.
// An empty Category means the client's primary knowledge base.
type Document struct {
	Client     string
	DocumentID string
	Category   string
}

// Chunk is a primary-category match with its provenance.
type Chunk struct {
	Text             string `json:"text"`
	SourceDocumentID string `json:"source_document_id"`
	Category         string `json:"category"`
	Client           string `json:"client"`
}

// Project is a structured record parsed out of a primary document.
// Missing fields are nil.
type Project struct {
	Name              string   `json:"project_name"`
	Status            string   `json:"status"`
	CreatedTime       *string  `json:"created_time"`
	OriginalDueDate   *string  `json:"original_due_date"`
	DeploymentDate    *string  `json:"deployment_date"`
	TotalProjectHours *float64 `json:"total_project_hours"`
	ProjectedDevHours *float64 `json:"projected_dev_hours"`
	ProjectedQIHours  *float64 `json:"projected_qi_hours"`
	Details           *string  `json:"details"`
	Task              string   `json:"task,omitempty"`
	Comments          *string  `json:"comments"`
}

// SearchResult holds the matches for one query. Every configured category has
// an entry in Categories, empty when nothing matched.
type SearchResult struct {
	Primary    []Chunk
	Records    []Project
	Categories map[string][]string
}

// IndexStats describes one index after a write.
type IndexStats struct {
	Client   string
	Category string
	Added    int
	Chunks   int
	Vectors  int
}

// IndexReport summarizes a RebuildAll or Append run.
type IndexReport struct {
	Mode      string
	Documents int
	Skipped   int
	Chunks    int
	Indexes   []IndexStats
	Duration  time.Duration
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
