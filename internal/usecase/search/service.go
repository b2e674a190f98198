package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
	"github.com/kailas-cloud/eshoplite/internal/metrics"
)

const defaultTopK = 3

// Config tunes the search pipeline.
type Config struct {
	TopK       int     // nearest neighbors to fetch (default 3)
	Threshold  float64 // relevance cut-off, direction set by the index metric; zero is a valid cut-off
	Dimensions int     // expected vector size; stored embeddings of another size are recomputed
}

// Service is the semantic search engine: it owns the vector index lifecycle
// and turns a free-text question into a grounded chat answer.
type Service struct {
	index    VectorIndex
	catalog  Catalog
	embed    Embedder
	chat     ChatCompleter
	reasoner ChatCompleter
	cfg      Config
	logger   *zap.Logger

	building chan struct{} // one-slot lock held while the index builds
	state    atomic.Int32
}

// New creates a search engine. reasoner may be nil, in which case reasoning
// searches use chat and still split a <think> section when present.
func New(
	index VectorIndex,
	catalog Catalog,
	embed Embedder,
	chat ChatCompleter,
	reasoner ChatCompleter,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	return &Service{
		index:    index,
		catalog:  catalog,
		embed:    embed,
		chat:     chat,
		reasoner: reasoner,
		cfg:      cfg,
		logger:   logger,
		building: make(chan struct{}, 1),
	}
}

// State returns the current index lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Initialize builds the vector index from the catalog exactly once.
// Concurrent callers wait for the running initialization until their own
// context ends. A failure to create
// the collection or list the catalog resets the state so the next call retries;
// a product that cannot be embedded or upserted is logged and skipped.
func (s *Service) Initialize(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}

	select {
	case s.building <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("wait for index build: %w", ctx.Err())
	}
	defer func() { <-s.building }()

	if s.State() == StateReady {
		return nil
	}
	s.state.Store(int32(StateInitializing))

	if err := s.build(ctx); err != nil {
		s.state.Store(int32(StateUninitialized))
		return err
	}

	s.state.Store(int32(StateReady))
	return nil
}

func (s *Service) build(ctx context.Context) error {
	start := time.Now()

	if err := s.index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", withSentinel(err, domain.ErrVectorIndexError))
	}

	products, err := s.catalog.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}

	writer, _ := s.catalog.(EmbeddingWriter)
	var indexed, failed int

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("index products: %w", err)
		}

		vec, err := s.productVector(ctx, p, writer)
		if err != nil {
			failed++
			metrics.IndexProductsTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("Failed to embed product, skipping",
				zap.Int64("product_id", p.ID), zap.String("name", p.Name), zap.Error(err))
			continue
		}

		if err := s.index.Upsert(ctx, p.Vector(vec)); err != nil {
			failed++
			metrics.IndexProductsTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("Failed to upsert product vector, skipping",
				zap.Int64("product_id", p.ID), zap.String("name", p.Name), zap.Error(err))
			continue
		}

		indexed++
		metrics.IndexProductsTotal.WithLabelValues("indexed").Inc()
	}

	s.logger.Info("Vector index initialized",
		zap.Int("products", len(products)),
		zap.Int("indexed", indexed),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// productVector reuses a stored embedding of the right size or computes and stores a new one.
func (s *Service) productVector(ctx context.Context, p domain.Product, writer EmbeddingWriter) ([]float32, error) {
	if p.HasEmbedding(s.cfg.Dimensions) {
		return p.Embedding, nil
	}

	res, err := s.embed.Embed(ctx, p.EmbeddingText())
	if err != nil {
		return nil, withSentinel(err, domain.ErrEmbeddingProviderError)
	}

	if writer != nil {
		if err := writer.SaveEmbedding(ctx, p.ID, res.Embedding); err != nil {
			s.logger.Warn("Failed to store product embedding", zap.Int64("product_id", p.ID), zap.Error(err))
		}
	}
	return res.Embedding, nil
}

// Search answers query with the standard chat model. It never fails:
// errors are reported in the response text.
func (s *Service) Search(ctx context.Context, query string) domain.SearchResponse {
	return s.search(ctx, query, false)
}

// SearchReasoning answers query with the reasoning model and splits its
// <think> section into ResponseThink.
func (s *Service) SearchReasoning(ctx context.Context, query string) domain.SearchResponse {
	return s.search(ctx, query, true)
}

func (s *Service) search(ctx context.Context, query string, reasoning bool) domain.SearchResponse {
	start := time.Now()
	resp := domain.NewSearchResponse(defaultAnswer(query))

	answered, err := s.run(ctx, query, reasoning, &resp)
	switch {
	case err != nil:
		resp.Response = "An error occurred: " + err.Error()
		metrics.SearchTotal.WithLabelValues("degraded").Inc()
		s.logger.Error("Semantic search failed", zap.String("query", query), zap.Error(err))
	case answered:
		metrics.SearchTotal.WithLabelValues("answered").Inc()
	default:
		metrics.SearchTotal.WithLabelValues("no_match").Inc()
	}

	resp.SetElapsed(start)
	return resp
}

// run fills resp step by step. Products resolved before a failure stay in resp.
func (s *Service) run(ctx context.Context, query string, reasoning bool, resp *domain.SearchResponse) (bool, error) {
	if err := s.Initialize(ctx); err != nil {
		return false, fmt.Errorf("initialize index: %w", err)
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return false, fmt.Errorf("embed query: %w", withSentinel(err, domain.ErrEmbeddingProviderError))
	}

	matches, err := s.index.Search(ctx, emb.Embedding, s.cfg.TopK)
	if err != nil {
		return false, fmt.Errorf("vector search: %w", withSentinel(err, domain.ErrVectorIndexError))
	}

	metric := s.index.Metric()
	seen := make(map[int64]struct{}, s.cfg.TopK)
	var grounding strings.Builder

	for m := range matches.All() {
		if len(resp.Products) >= s.cfg.TopK {
			break
		}
		if !metric.Passes(m.Score, s.cfg.Threshold) {
			continue
		}
		if _, dup := seen[m.Record.ID]; dup {
			continue
		}

		p, err := s.catalog.FindByID(ctx, m.Record.ID)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug("Indexed product no longer in catalog", zap.Int64("product_id", m.Record.ID))
			continue
		}
		if err != nil {
			return false, fmt.Errorf("resolve product %d: %w", m.Record.ID, err)
		}

		seen[p.ID] = struct{}{}
		resp.Products = append(resp.Products, p)
		writeGrounding(&grounding, len(resp.Products), p)
	}

	if len(resp.Products) == 0 {
		return false, nil
	}

	chat := s.chat
	if reasoning && s.reasoner != nil {
		chat = s.reasoner
	}

	res, err := chat.Complete(ctx, buildMessages(query, grounding.String()))
	if err != nil {
		return false, fmt.Errorf("chat completion: %w", withSentinel(err, domain.ErrChatProviderError))
	}

	if reasoning {
		resp.ResponseComplete = res.Text
		resp.ResponseThink, resp.Response = splitThink(res.Text)
	} else {
		resp.Response = res.Text
	}
	return true, nil
}

// withSentinel tags err with sentinel unless it already carries it.
func withSentinel(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
