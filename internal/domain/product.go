package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a catalog entity.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Embedding   []float32       `json:"-"`
}

// EmbeddingText renders the text that represents the product in the vector index.
func (p Product) EmbeddingText() string {
	return fmt.Sprintf("[%s] is a product that costs [%s] and is described as [%s]",
		p.Name, p.Price.String(), p.Description)
}

// Vector projects the product into its index-side form.
func (p Product) Vector(vec []float32) ProductVector {
	return ProductVector{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Vector:      vec,
	}
}

// HasEmbedding reports whether the product carries a stored vector of the given size.
func (p Product) HasEmbedding(dimensions int) bool {
	return len(p.Embedding) > 0 && (dimensions <= 0 || len(p.Embedding) == dimensions)
}

// Validate checks the fields a catalog write requires.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if p.ID < 0 {
		return errors.New("id must not be negative")
	}
	return nil
}
