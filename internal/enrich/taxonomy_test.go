package enrich

import (
	"testing"
)

func TestTaxonomy_ValidateCategory(t *testing.T) {
	taxonomy := NewTaxonomy(
		TaxonomyEntry{Name: "Housing", Subcategories: []string{"Rent", "Utilities"}},
		TaxonomyEntry{Name: "Food & Dining", Subcategories: []string{"Groceries", "Restaurants"}},
		TaxonomyEntry{Name: "Others"},
	)

	tests := []struct {
		name        string
		category    string
		subcategory string
		wantErr     bool
	}{
		{
			name:        "valid category and subcategory",
			category:    "Housing",
			subcategory: "Rent",
			wantErr:     false,
		},
		{
			name:        "valid with different case",
			category:    "HOUSING",
			subcategory: "rent",
			wantErr:     false,
		},
		{
			name:        "valid with extra spaces",
			category:    "  Food   &  Dining ",
			subcategory: "  Groceries  ",
			wantErr:     false,
		},
		{
			name:        "and spelled out",
			category:    "food and dining",
			subcategory: "",
			wantErr:     false,
		},
		{
			name:        "invalid category",
			category:    "INVALID",
			subcategory: "Rent",
			wantErr:     true,
		},
		{
			name:        "invalid subcategory for valid category",
			category:    "Housing",
			subcategory: "Groceries",
			wantErr:     true,
		},
		{
			name:        "category without subcategories accepts any",
			category:    "others",
			subcategory: "misc",
			wantErr:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := taxonomy.ValidateCategory(tt.category, tt.subcategory)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCategory(%q, %q) error = %v, wantErr %v",
					tt.category, tt.subcategory, err, tt.wantErr)
			}
		})
	}
}

func TestTaxonomy_Normalize(t *testing.T) {
	taxonomy := DefaultTaxonomy()

	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"food and dining", "Food & Dining", true},
		{"SHOPPING", "Shopping", true},
		{"groceries", "Groceries", true},
		{"income", "Income", true},
		{"others", "Others", true},
		{"Crypto Mining", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := taxonomy.Normalize(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
