package provision

import (
	"github.com/utafrali/search-provisioner/internal/engine"
	"github.com/utafrali/search-provisioner/pkg/validator"
)

// KeySpec describes an API key the provisioner ensures exists. Keys are
// matched by name, so reruns skip keys that are already there.
type KeySpec struct {
	Name        string   `validate:"required"`
	Description string   `validate:"max=500"`
	Actions     []string `validate:"required,min=1,dive,required"`
	Indexes     []string `validate:"required,min=1,dive,required"`
}

// Plan is the declarative description of the search index to provision.
type Plan struct {
	IndexUID   string `validate:"required,max=64"`
	PrimaryKey string `validate:"required,max=64"`

	Settings engine.Settings `validate:"-"`

	Keys []KeySpec `validate:"dive"`
}

// Validate checks the plan's structural constraints.
func (p *Plan) Validate() error {
	return validator.Validate(p)
}

// DefaultPlan returns the product catalog plan: what gets searched, what the
// storefront filters and sorts on, and the two keys the other services use.
func DefaultPlan() *Plan {
	typosEnabled := true

	return &Plan{
		IndexUID:   "products",
		PrimaryKey: "id",
		Settings: engine.Settings{
			SearchableAttributes: []string{"name", "description", "brand", "category"},
			FilterableAttributes: []string{"price", "brand", "category", "in_stock"},
			SortableAttributes:   []string{"price", "rating", "created_at"},
			RankingRules: []string{
				"words", "typo", "proximity", "attribute", "sort", "exactness",
			},
			Synonyms: map[string][]string{
				"sneaker": {"trainer", "shoe"},
				"tee":     {"t-shirt", "tshirt"},
			},
			TypoTolerance: &engine.TypoTolerance{
				Enabled:             &typosEnabled,
				MinWordSizeForTypos: &engine.MinWord{OneTypo: 5, TwoTypos: 9},
				DisableOnAttributes: []string{"brand"},
			},
			Pagination: &engine.Pagination{MaxTotalHits: 1000},
		},
		Keys: []KeySpec{
			{
				Name:        "storefront-search",
				Description: "Read-only search key for the storefront",
				Actions:     []string{"search"},
				Indexes:     []string{"products"},
			},
			{
				Name:        "catalog-indexer",
				Description: "Document write key for catalog sync",
				Actions:     []string{"documents.add", "documents.delete", "tasks.get"},
				Indexes:     []string{"products"},
			},
		},
	}
}
