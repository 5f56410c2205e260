package clientrag

import (
	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/domain/record"
	"github.com/kailas-cloud/clientrag/internal/usecase/indexing"
)

func toDescriptors(docs []Document) []domain.Descriptor {
	out := make([]domain.Descriptor, len(docs))
	for i, d := range docs {
		cat := domain.Category(d.Category)
		if cat == "" {
			cat = domain.Primary
		}
		out[i] = domain.Descriptor{Client: d.Client, DocumentID: d.DocumentID, Category: cat}
	}
	return out
}

func fromSearchResult(r domain.SearchResult) SearchResult {
	out := SearchResult{
		Primary:    make([]Chunk, len(r.Primary)),
		Records:    make([]Project, len(r.Records)),
		Categories: make(map[string][]string, len(r.Categories)),
	}
	for i, c := range r.Primary {
		out.Primary[i] = Chunk{
			Text:             c.Text,
			SourceDocumentID: c.SourceDocumentID,
			Category:         string(c.Category),
			Client:           c.Client,
		}
	}
	for i, p := range r.Records {
		out.Records[i] = fromProject(p)
	}
	for cat, texts := range r.Categories {
		out.Categories[string(cat)] = append([]string{}, texts...)
	}
	return out
}

func fromProject(p record.Project) Project {
	return Project{
		Name:              p.Name,
		Status:            p.Status,
		CreatedTime:       p.CreatedTime,
		OriginalDueDate:   p.OriginalDueDate,
		DeploymentDate:    p.DeploymentDate,
		TotalProjectHours: p.TotalProjectHours,
		ProjectedDevHours: p.ProjectedDevHours,
		ProjectedQIHours:  p.ProjectedQIHours,
		Details:           p.Details,
		Task:              p.Task,
		Comments:          p.Comments,
	}
}

func fromReport(r indexing.Report) IndexReport {
	out := IndexReport{
		Mode:      r.Mode,
		Documents: r.Documents,
		Skipped:   r.Skipped,
		Chunks:    r.Chunks,
		Indexes:   make([]IndexStats, len(r.Indexes)),
		Duration:  r.Duration,
	}
	for i, st := range r.Indexes {
		out.Indexes[i] = IndexStats{
			Client:   st.Client,
			Category: string(st.Category),
			Added:    st.Added,
			Chunks:   st.Chunks,
			Vectors:  st.Vectors,
		}
	}
	return out
}

func toCategorySet(cats []Category) (domain.CategorySet, error) {
	if len(cats) == 0 {
		return domain.DefaultCategories(), nil
	}
	specs := make([]domain.CategorySpec, len(cats))
	for i, c := range cats {
		specs[i] = domain.CategorySpec{Name: domain.Category(c.Name), Suffix: c.Suffix}
	}
	return domain.NewCategorySet(specs)
}
