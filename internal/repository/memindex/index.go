// Package memindex is an in-process vector index with brute-force cosine similarity.
package memindex

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// Index keeps product vectors in memory. It is rebuilt on every process start.
type Index struct {
	mu          sync.RWMutex
	records     map[int64]domain.ProductVector
	dimensions  int
	initialized atomic.Bool
}

// New creates an empty index. dimensions <= 0 accepts the size of the first upserted vector.
func New(dimensions int) *Index {
	return &Index{
		records:    make(map[int64]domain.ProductVector),
		dimensions: dimensions,
	}
}

// EnsureCollection marks the index ready. Repeated calls are no-ops.
func (ix *Index) EnsureCollection(_ context.Context) error {
	ix.initialized.Store(true)
	return nil
}

// Initialized reports whether EnsureCollection has succeeded.
func (ix *Index) Initialized() bool { return ix.initialized.Load() }

// Metric reports cosine similarity: higher is closer.
func (ix *Index) Metric() domain.Metric { return domain.MetricSimilarity }

// Upsert inserts or replaces the record with the same id.
func (ix *Index) Upsert(_ context.Context, rec domain.ProductVector) error {
	if len(rec.Vector) == 0 {
		return fmt.Errorf("product %d: empty vector: %w", rec.ID, domain.ErrVectorIndexError)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dimensions <= 0 {
		ix.dimensions = len(rec.Vector)
	}
	if len(rec.Vector) != ix.dimensions {
		return fmt.Errorf("product %d: vector has %d dimensions, index expects %d: %w",
			rec.ID, len(rec.Vector), ix.dimensions, domain.ErrVectorIndexError)
	}

	rec.Vector = slices.Clone(rec.Vector)
	ix.records[rec.ID] = rec
	return nil
}

// Search returns up to topK records ordered by descending similarity.
func (ix *Index) Search(ctx context.Context, vec []float32, topK int) (*domain.Matches, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w: %w", domain.ErrVectorIndexError, err)
	}
	if topK <= 0 {
		return domain.NewMatches(nil), nil
	}

	ix.mu.RLock()
	if ix.dimensions > 0 && len(vec) != ix.dimensions {
		dims := ix.dimensions
		ix.mu.RUnlock()
		return nil, fmt.Errorf("search: query has %d dimensions, index expects %d: %w",
			len(vec), dims, domain.ErrVectorIndexError)
	}
	hits := make([]domain.VectorMatch, 0, len(ix.records))
	for _, rec := range ix.records {
		hits = append(hits, domain.VectorMatch{Record: rec, Score: cosine(vec, rec.Vector)})
	}
	ix.mu.RUnlock()

	slices.SortFunc(hits, func(a, b domain.VectorMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Record.ID, b.Record.ID)
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return domain.NewMatches(hits), nil
}

// Len returns the number of stored records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// cosine returns 0 for mismatched or zero-length vectors.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
