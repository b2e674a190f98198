package enrichment

import (
	"context"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// Catalog finds candidate products by substring.
type Catalog interface {
	FindByNameOrDescriptionContains(ctx context.Context, term string, limit int) ([]domain.Product, error)
}

// Agents fetches per-product enrichment data.
type Agents interface {
	CheckInventory(ctx context.Context, productID int64) (int, error)
	ActivePromotions(ctx context.Context, productID int64) ([]domain.Promotion, error)
	Insights(ctx context.Context, productID int64) ([]domain.Insight, error)
}
