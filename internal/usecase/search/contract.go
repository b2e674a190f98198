package search

import (
	"context"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// VectorIndex stores product vectors and answers nearest-neighbor queries.
type VectorIndex interface {
	// EnsureCollection creates the collection if absent. No-op once Initialized.
	EnsureCollection(ctx context.Context) error
	Initialized() bool
	// Upsert inserts or replaces a record by id.
	Upsert(ctx context.Context, rec domain.ProductVector) error
	// Search returns at most topK hits ordered by relevance.
	Search(ctx context.Context, vector []float32, topK int) (*domain.Matches, error)
	// Metric reports how scores compare against the threshold.
	Metric() domain.Metric
}

// Catalog reads products for indexing and result resolution.
type Catalog interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id int64) (domain.Product, error)
}

// EmbeddingWriter persists computed product vectors. Optional on the Catalog.
type EmbeddingWriter interface {
	SaveEmbedding(ctx context.Context, id int64, vec []float32) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ChatCompleter runs a single-turn chat completion.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (domain.ChatResult, error)
}
