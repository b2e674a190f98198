package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// Service handles product CRUD and keyword search.
type Service struct {
	repo Repository
}

// New creates a catalog service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all products ordered by id.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get retrieves a product by id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, fmt.Errorf("validate product: %w: %w", domain.ErrInvalidRequest, err)
	}
	p.Embedding = nil

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

// Update replaces the product stored under id.
func (s *Service) Update(ctx context.Context, id int64, p domain.Product) (domain.Product, error) {
	p.ID = id
	p.Embedding = nil
	if err := p.Validate(); err != nil {
		return domain.Product{}, fmt.Errorf("validate product: %w: %w", domain.ErrInvalidRequest, err)
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", id, err)
	}
	return p, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

// Search finds products whose name or description contains term.
func (s *Service) Search(ctx context.Context, term string) (domain.SearchResponse, error) {
	start := time.Now()

	term = strings.TrimSpace(term)
	if term == "" {
		return domain.SearchResponse{}, fmt.Errorf("%w: search term is required", domain.ErrInvalidRequest)
	}

	products, err := s.repo.FindByNameOrDescriptionContains(ctx, term, 0)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search products: %w", err)
	}

	resp := domain.NewSearchResponse(fmt.Sprintf("No products found for [%s]", term))
	if len(products) > 0 {
		resp.Response = fmt.Sprintf("%d Products found for [%s]", len(products), term)
		resp.Products = products
	}
	resp.SetElapsed(start)
	return resp, nil
}
