package domain

import (
	"fmt"
	"strings"
)

// Category names a document source. Each (client, category) pair owns one index.
type Category string

// Primary is the client's general knowledge base. It is rebuilt wholesale on every run
// and keeps provenance per chunk.
const Primary Category = "primary"

// Specialised categories indexed append-on-existing.
const (
	CRM          Category = "crm"
	ChatExternal Category = "chatExternal"
	Transcript   Category = "transcript"
	FAQ          Category = "faq"
	ChatInternal Category = "chatInternal"
)

// CategorySpec binds a category to the suffix used in its on-disk file names.
type CategorySpec struct {
	Name   Category
	Suffix string
}

// CategorySet is the ordered enumeration of specialised categories known at indexing time.
// Primary is always implied and never listed.
type CategorySet struct {
	specs []CategorySpec
	index map[Category]int
}

// DefaultCategories returns the five specialised categories with file suffixes
// compatible with indexes produced by earlier deployments.
func DefaultCategories() CategorySet {
	set, _ := NewCategorySet([]CategorySpec{
		{Name: CRM, Suffix: "hubspot"},
		{Name: ChatExternal, Suffix: "raw_messages"},
		{Name: Transcript, Suffix: "transcript"},
		{Name: FAQ, Suffix: "faq"},
		{Name: ChatInternal, Suffix: "slack"},
	})
	return set
}

// NewCategorySet validates and builds a category set.
func NewCategorySet(specs []CategorySpec) (CategorySet, error) {
	set := CategorySet{
		specs: make([]CategorySpec, 0, len(specs)),
		index: make(map[Category]int, len(specs)),
	}
	suffixes := make(map[string]Category, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return CategorySet{}, fmt.Errorf("category name is required")
		}
		if s.Name == Primary {
			return CategorySet{}, fmt.Errorf("category %q is implicit and cannot be listed", Primary)
		}
		if s.Suffix == "" {
			s.Suffix = string(s.Name)
		}
		if !validName(s.Suffix) {
			return CategorySet{}, fmt.Errorf("category %q: invalid file suffix %q", s.Name, s.Suffix)
		}
		if _, dup := set.index[s.Name]; dup {
			return CategorySet{}, fmt.Errorf("category %q listed twice", s.Name)
		}
		if other, dup := suffixes[s.Suffix]; dup {
			return CategorySet{}, fmt.Errorf("categories %q and %q share suffix %q", other, s.Name, s.Suffix)
		}
		suffixes[s.Suffix] = s.Name
		set.index[s.Name] = len(set.specs)
		set.specs = append(set.specs, s)
	}
	return set, nil
}

// Specialised returns the specialised categories in configured order.
func (s CategorySet) Specialised() []Category {
	out := make([]Category, len(s.specs))
	for i, spec := range s.specs {
		out[i] = spec.Name
	}
	return out
}

// All returns Primary followed by the specialised categories.
func (s CategorySet) All() []Category {
	return append([]Category{Primary}, s.Specialised()...)
}

// Has reports whether c is Primary or a configured specialised category.
func (s CategorySet) Has(c Category) bool {
	if c == Primary {
		return true
	}
	_, ok := s.index[c]
	return ok
}

// Suffix returns the file-name suffix for c. Primary has none.
func (s CategorySet) Suffix(c Category) (string, error) {
	if c == Primary {
		return "", nil
	}
	i, ok := s.index[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return s.specs[i].Suffix, nil
}

// Len returns the number of specialised categories.
func (s CategorySet) Len() int { return len(s.specs) }

// ValidateClient rejects client ids that cannot be used as a file-name component.
func ValidateClient(client string) error {
	if !validName(client) {
		return fmt.Errorf("%w: %q", ErrInvalidClient, client)
	}
	return nil
}

// ValidateClient also rejects client ids whose file stem could coincide with another
// client's category file: "acme_faq" would share "acme"'s faq stem, and with a
// "raw_messages" suffix "acme_raw" would too.
func (s CategorySet) ValidateClient(client string) error {
	if err := ValidateClient(client); err != nil {
		return err
	}
	for _, spec := range s.specs {
		for _, tail := range stemTails(spec.Suffix) {
			if strings.HasSuffix(client, "_"+tail) {
				return fmt.Errorf("%w: %q ends in %q, reserved by category %q",
					ErrInvalidClient, client, "_"+tail, spec.Name)
			}
		}
	}
	return nil
}

// stemTails returns suffix and each of its underscore-delimited prefixes.
func stemTails(suffix string) []string {
	tails := []string{suffix}
	for i := range len(suffix) {
		if suffix[i] == '_' {
			tails = append(tails, suffix[:i])
		}
	}
	return tails
}

func validName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`+"\x00")
}
