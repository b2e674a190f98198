package domain

import (
	"iter"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// ProductVector is the index-side projection of a Product.
type ProductVector struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	Vector      []float32
}

// VectorMatch is a single index hit.
type VectorMatch struct {
	Record ProductVector
	Score  float64
}

// Metric defines how a backend's score compares against a threshold.
type Metric int

const (
	// MetricSimilarity scores grow with relevance (cosine similarity).
	MetricSimilarity Metric = iota
	// MetricDistance scores shrink with relevance (cosine distance).
	MetricDistance
)

func (m Metric) String() string {
	if m == MetricDistance {
		return "distance"
	}
	return "similarity"
}

// Passes reports whether score is relevant enough under the metric.
// Similarity keeps scores strictly above the threshold, distance keeps scores strictly below it.
func (m Metric) Passes(score, threshold float64) bool {
	if m == MetricDistance {
		return score < threshold
	}
	return score > threshold
}

// Matches is a relevance-ordered, one-shot sequence of index hits.
type Matches struct {
	hits     []VectorMatch
	consumed atomic.Bool
}

// NewMatches wraps hits that are already ordered by relevance.
func NewMatches(hits []VectorMatch) *Matches {
	return &Matches{hits: hits}
}

// All yields the hits lazily. Only the first traversal sees any elements.
func (m *Matches) All() iter.Seq[VectorMatch] {
	return func(yield func(VectorMatch) bool) {
		if m == nil || !m.consumed.CompareAndSwap(false, true) {
			return
		}
		for _, h := range m.hits {
			if !yield(h) {
				return
			}
		}
	}
}

// Len returns the number of hits regardless of consumption.
func (m *Matches) Len() int {
	if m == nil {
		return 0
	}
	return len(m.hits)
}
