package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/search-provisioner/internal/domain"
	"github.com/utafrali/search-provisioner/internal/repository"
	"github.com/utafrali/search-provisioner/pkg/database"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// CountPublished returns the number of published products in the catalog.
func (r *ProductRepository) CountPublished(ctx context.Context) (int, error) {
	query := `SELECT count(*) FROM products WHERE status = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, domain.ProductStatusPublished).Scan(&count); err != nil {
		return 0, fmt.Errorf("count published products: %w", err)
	}

	return count, nil
}

// ListPublished returns up to limit published products with ID greater than
// afterID, ordered by ID. Keyset pagination keeps page cost flat regardless
// of catalog size.
func (r *ProductRepository) ListPublished(ctx context.Context, afterID string, limit int) (repository.ProductPage, error) {
	query := `
		SELECT p.id, p.name, p.description,
		       coalesce(b.name, '') AS brand,
		       coalesce(c.name, '') AS category,
		       p.base_price, p.currency,
		       coalesce(p.rating, 0) AS rating,
		       coalesce(i.quantity_available, 0) > 0 AS in_stock,
		       p.created_at
		FROM products p
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE p.status = $1 AND p.id > $2
		ORDER BY p.id
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.ProductStatusPublished, afterID, limit)
	if err != nil {
		return repository.ProductPage{}, fmt.Errorf("list published products: %w", err)
	}
	defer rows.Close()

	var page repository.ProductPage

	for rows.Next() {
		var p domain.Product

		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Brand,
			&p.Category,
			&p.BasePrice,
			&p.Currency,
			&p.Rating,
			&p.InStock,
			&p.CreatedAt,
		); err != nil {
			return repository.ProductPage{}, fmt.Errorf("scan product row: %w", err)
		}

		page.Products = append(page.Products, p)
	}

	if err := rows.Err(); err != nil {
		return repository.ProductPage{}, fmt.Errorf("iterate product rows: %w", err)
	}

	if n := len(page.Products); n > 0 {
		page.LastID = page.Products[n-1].ID
	}

	return page, nil
}
