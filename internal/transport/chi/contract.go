package chi

import (
	"context"

	"github.com/kailas-cloud/eshoplite/internal/domain"
	healthuc "github.com/kailas-cloud/eshoplite/internal/usecase/health"
)

// CatalogService manages products.
type CatalogService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, id int64, p domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, term string) (domain.SearchResponse, error)
}

// SemanticSearcher answers free-text questions over the catalog.
type SemanticSearcher interface {
	Search(ctx context.Context, query string) domain.SearchResponse
	SearchReasoning(ctx context.Context, query string) domain.SearchResponse
}

// Orchestrator runs the enrichment search.
type Orchestrator interface {
	ExecuteSearch(ctx context.Context, term string) domain.AggregateResponse
}

// InsightService generates and lists question insights.
type InsightService interface {
	Generate(ctx context.Context, question string) (domain.QuestionInsight, error)
	List(ctx context.Context) ([]domain.QuestionInsight, error)
	Record(ctx context.Context, question string)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
