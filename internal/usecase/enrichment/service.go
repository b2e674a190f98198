package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/eshoplite/internal/domain"
	"github.com/kailas-cloud/eshoplite/internal/metrics"
)

const (
	defaultMaxCandidates = 10
	defaultConcurrency   = 4
	defaultCallTimeout   = 5 * time.Second

	errorResponse = "Error occurred during A2A search. Please try again."
)

// Enrichment service labels.
const (
	ServiceInventory  = "inventory"
	ServicePromotions = "promotions"
	ServiceInsights   = "insights"
)

// Config bounds the fan-out.
type Config struct {
	MaxCandidates int           // catalog matches to enrich (default 10)
	Concurrency   int           // candidates enriched at once (default 4)
	CallTimeout   time.Duration // per enrichment call (default 5s)
}

// Service finds products by substring and enriches each from the agents.
type Service struct {
	catalog Catalog
	agents  Agents
	cfg     Config
	logger  *zap.Logger
}

// New creates an orchestrator.
func New(catalog Catalog, agents Agents, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = defaultMaxCandidates
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Service{catalog: catalog, agents: agents, cfg: cfg, logger: logger}
}

// ExecuteSearch never fails: enrichment failures zero the affected field,
// a catalog failure yields an empty list and an apology.
func (s *Service) ExecuteSearch(ctx context.Context, term string) domain.AggregateResponse {
	candidates, err := s.catalog.FindByNameOrDescriptionContains(ctx, term, s.cfg.MaxCandidates)
	if err != nil {
		s.logger.Error("Enrichment search failed", zap.String("term", term), zap.Error(err))
		return domain.AggregateResponse{Response: errorResponse, Products: []domain.EnrichedProduct{}}
	}
	if len(candidates) == 0 {
		return domain.AggregateResponse{
			Response: fmt.Sprintf("No products found for [%s].", term),
			Products: []domain.EnrichedProduct{},
		}
	}

	enriched := make([]domain.EnrichedProduct, len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i, p := range candidates {
		g.Go(func() error {
			enriched[i] = s.enrich(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return domain.AggregateResponse{
		Response: fmt.Sprintf("Found %d products enriched with A2A agents (inventory, promotions, and insights).", len(enriched)),
		Products: enriched,
	}
}

// enrich issues the three agent calls concurrently and waits for all of them.
func (s *Service) enrich(ctx context.Context, p domain.Product) domain.EnrichedProduct {
	out := domain.NewEnrichedProduct(p)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if stock, ok := call(ctx, s, p.ID, ServiceInventory, s.agents.CheckInventory); ok {
			out.Stock = stock
		}
	}()
	go func() {
		defer wg.Done()
		if promotions, ok := call(ctx, s, p.ID, ServicePromotions, s.agents.ActivePromotions); ok && promotions != nil {
			out.Promotions = promotions
		}
	}()
	go func() {
		defer wg.Done()
		if insights, ok := call(ctx, s, p.ID, ServiceInsights, s.agents.Insights); ok && insights != nil {
			out.Insights = insights
		}
	}()
	wg.Wait()

	return out
}

// call runs one agent request under its own timeout and records the outcome.
func call[T any](
	ctx context.Context, s *Service, productID int64, service string,
	fn func(context.Context, int64) (T, error),
) (T, bool) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	v, err := fn(callCtx, productID)
	metrics.EnrichmentCallDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EnrichmentCallsTotal.WithLabelValues(service, "error").Inc()
		s.logger.Warn("Enrichment call failed",
			zap.Int64("product_id", productID),
			zap.String("service", service),
			zap.Error(err),
		)
		var zero T
		return zero, false
	}

	metrics.EnrichmentCallsTotal.WithLabelValues(service, "ok").Inc()
	return v, true
}
