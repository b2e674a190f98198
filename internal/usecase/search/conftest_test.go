package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
	"github.com/kailas-cloud/eshoplite/internal/repository/memindex"
)

// --- Mocks ---

// keywordEmbedder maps text onto three axes: hiking/boots, tents, everything else.
type keywordEmbedder struct {
	calls  atomic.Int32
	failOn string // substring that triggers an error
	err    error
	delay  time.Duration
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		}
	}
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return domain.EmbeddingResult{}, errors.New("rate limited")
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hiking") || strings.Contains(lower, "boot"):
		return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
	case strings.Contains(lower, "tent"):
		return domain.EmbeddingResult{Embedding: []float32{0, 1, 0}}, nil
	default:
		return domain.EmbeddingResult{Embedding: []float32{0, 0, 1}}, nil
	}
}

type mockCatalog struct {
	mu        sync.Mutex
	products  []domain.Product
	listErr   error
	findErr   error
	listCalls atomic.Int32
	saved     map[int64][]float32
}

func (m *mockCatalog) ListAll(_ context.Context) ([]domain.Product, error) {
	m.listCalls.Add(1)
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Product(nil), m.products...), nil
}

func (m *mockCatalog) FindByID(_ context.Context, id int64) (domain.Product, error) {
	if m.findErr != nil {
		return domain.Product{}, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrNotFound
}

func (m *mockCatalog) remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.products {
		if p.ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return
		}
	}
}

// writableCatalog also persists embeddings.
type writableCatalog struct {
	*mockCatalog
}

func (w writableCatalog) SaveEmbedding(_ context.Context, id int64, vec []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.saved == nil {
		w.saved = make(map[int64][]float32)
	}
	w.saved[id] = vec
	return nil
}

type mockChat struct {
	mu       sync.Mutex
	text     string
	err      error
	calls    int
	messages []domain.ChatMessage
}

func (m *mockChat) Complete(_ context.Context, messages []domain.ChatMessage) (domain.ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = messages
	if m.err != nil {
		return domain.ChatResult{}, m.err
	}
	return domain.ChatResult{Text: m.text}, nil
}

// countingIndex wraps the in-memory index and counts collection setup.
type countingIndex struct {
	*memindex.Index
	ensureCalls atomic.Int32
	ensureErr   error
	upsertErr   map[int64]error
}

func (c *countingIndex) EnsureCollection(ctx context.Context) error {
	c.ensureCalls.Add(1)
	if c.ensureErr != nil {
		return c.ensureErr
	}
	return c.Index.EnsureCollection(ctx)
}

func (c *countingIndex) Upsert(ctx context.Context, rec domain.ProductVector) error {
	if err := c.upsertErr[rec.ID]; err != nil {
		return err
	}
	return c.Index.Upsert(ctx, rec)
}

// scriptedIndex returns fixed hits regardless of the query.
type scriptedIndex struct {
	hits      []domain.VectorMatch
	metric    domain.Metric
	searchErr error
	lastTopK  int
}

func (s *scriptedIndex) EnsureCollection(context.Context) error { return nil }

func (s *scriptedIndex) Initialized() bool { return true }

func (s *scriptedIndex) Upsert(context.Context, domain.ProductVector) error { return nil }

func (s *scriptedIndex) Metric() domain.Metric { return s.metric }

func (s *scriptedIndex) Search(_ context.Context, _ []float32, topK int) (*domain.Matches, error) {
	s.lastTopK = topK
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return domain.NewMatches(s.hits), nil
}

// --- Fixtures ---

func campingCatalog() *mockCatalog {
	return &mockCatalog{products: []domain.Product{
		{ID: 1, Name: "Hiking Boots", Description: "Waterproof leather boots", Price: decimal.RequireFromString("150")},
		{ID: 2, Name: "Camping Tent", Description: "Two person shelter", Price: decimal.RequireFromString("200")},
	}}
}

func hit(id int64, score float64) domain.VectorMatch {
	return domain.VectorMatch{Record: domain.ProductVector{ID: id}, Score: score}
}

func newTestService(index VectorIndex, catalog Catalog, embed Embedder, chat ChatCompleter) *Service {
	return New(index, catalog, embed, chat, nil, Config{TopK: 3, Threshold: 0.5}, zap.NewNop())
}

func nopLogger() *zap.Logger { return zap.NewNop() }
