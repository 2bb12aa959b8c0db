package repository

import (
	"context"

	"github.com/utafrali/search-provisioner/internal/domain"
)

// ProductPage is a page of products ordered by ID.
type ProductPage struct {
	Products []domain.Product
	// LastID is the ID of the final product in the page, to be passed as
	// afterID on the next call. Empty when the page is empty.
	LastID string
}

// ProductRepository defines read access to the catalog for seeding the
// search index.
type ProductRepository interface {
	// CountPublished returns the number of published products in the catalog.
	CountPublished(ctx context.Context) (int, error)

	// ListPublished returns up to limit published products with ID greater
	// than afterID, ordered by ID. Pass an empty afterID for the first page.
	ListPublished(ctx context.Context, afterID string, limit int) (ProductPage, error)
}
