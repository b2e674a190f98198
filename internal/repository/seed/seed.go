// Package seed loads the bundled camping catalog into an empty store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

//go:embed products.json
var productsJSON []byte

type store interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
}

// Products returns the bundled catalog.
func Products() ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(productsJSON, &products); err != nil {
		return nil, fmt.Errorf("decode seed products: %w", err)
	}
	return products, nil
}

// Load inserts the bundled catalog when the store holds no products.
// Returns the number of products inserted.
func Load(ctx context.Context, s store, logger *zap.Logger) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count catalog: %w", err)
	}
	if n > 0 {
		logger.Debug("Catalog already populated, skipping seed", zap.Int("products", n))
		return 0, nil
	}

	products, err := Products()
	if err != nil {
		return 0, err
	}
	for i, p := range products {
		if _, err := s.Create(ctx, p); err != nil {
			return i, fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}

	logger.Info("Catalog seeded", zap.Int("products", len(products)))
	return len(products), nil
}
