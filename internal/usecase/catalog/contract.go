package catalog

import (
	"context"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// Repository defines the storage contract for products.
type Repository interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id int64) (domain.Product, error)
	FindByNameOrDescriptionContains(ctx context.Context, term string, limit int) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id int64) error
}
