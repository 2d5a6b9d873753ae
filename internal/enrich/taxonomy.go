package enrich

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// TaxonomyEntry is one category with its optional subcategories.
type TaxonomyEntry struct {
	Name          string
	Subcategories []string
}

// Taxonomy maps free-form category names onto canonical ones.
type Taxonomy struct {
	categories    map[string]string          // normalized -> canonical
	subcategories map[string]map[string]bool // normalized category -> set of normalized subcategories
}

// NewTaxonomy builds a taxonomy from entries.
func NewTaxonomy(entries ...TaxonomyEntry) *Taxonomy {
	t := &Taxonomy{
		categories:    make(map[string]string),
		subcategories: make(map[string]map[string]bool),
	}
	for _, e := range entries {
		norm := normalizeCategory(e.Name)
		if norm == "" {
			continue
		}
		t.categories[norm] = e.Name
		if len(e.Subcategories) == 0 {
			continue
		}
		if t.subcategories[norm] == nil {
			t.subcategories[norm] = make(map[string]bool)
		}
		for _, sub := range e.Subcategories {
			t.subcategories[norm][normalizeCategory(sub)] = true
		}
	}
	return t
}

// DefaultTaxonomy covers every category the built-in classifier can produce plus income.
func DefaultTaxonomy() *Taxonomy {
	var entries []TaxonomyEntry
	for _, c := range NewClassifier().Categories() {
		entries = append(entries, TaxonomyEntry{Name: c})
	}
	entries = append(entries, TaxonomyEntry{Name: "Income", Subcategories: []string{"Salary", "Refund", "Cashback", "Interest"}})
	return NewTaxonomy(entries...)
}

// Normalize returns the canonical spelling of name when it belongs to the taxonomy.
func (t *Taxonomy) Normalize(name string) (string, bool) {
	canonical, ok := t.categories[normalizeCategory(name)]
	return canonical, ok
}

// ValidateCategory checks a category and, when the category defines subcategories,
// a non-empty subcategory.
func (t *Taxonomy) ValidateCategory(category, subcategory string) error {
	normCat := normalizeCategory(category)
	if _, ok := t.categories[normCat]; !ok {
		return fmt.Errorf("invalid category: %q (normalized: %q)", category, normCat)
	}

	normSub := normalizeCategory(subcategory)
	if normSub == "" {
		return nil
	}
	if subs, ok := t.subcategories[normCat]; ok && !subs[normSub] {
		valid := make([]string, 0, len(subs))
		for s := range subs {
			valid = append(valid, s)
		}
		sort.Strings(valid)
		return fmt.Errorf("invalid subcategory %q for category %q. Valid subcategories: %v", subcategory, category, valid)
	}
	return nil
}

// normalizeCategory folds case, collapses whitespace and treats "and" as "&".
func normalizeCategory(name string) string {
	fields := strings.Fields(cases.Fold().String(name))
	for i, f := range fields {
		if f == "and" {
			fields[i] = "&"
		}
	}
	return strings.Join(fields, " ")
}
