package domain

import (
	"time"
)

// Product status constants.
const (
	ProductStatusDraft     = "draft"
	ProductStatusPublished = "published"
	ProductStatusArchived  = "archived"
)

// Product is a catalog product as read from the catalog database. Only the
// fields that end up in the search index are selected.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	BasePrice   int64     `json:"base_price"`
	Currency    string    `json:"currency"`
	Rating      float64   `json:"rating"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
}

// Document is the shape of a product as stored in the search index. Prices
// are indexed in minor units and timestamps as unix seconds so they sort and
// filter numerically.
type Document struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Price       int64   `json:"price"`
	Currency    string  `json:"currency"`
	Rating      float64 `json:"rating"`
	InStock     bool    `json:"in_stock"`
	CreatedAt   int64   `json:"created_at"`
}

// Document converts the product to its search index representation.
func (p *Product) Document() Document {
	return Document{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.BasePrice,
		Currency:    p.Currency,
		Rating:      p.Rating,
		InStock:     p.InStock,
		CreatedAt:   p.CreatedAt.Unix(),
	}
}
