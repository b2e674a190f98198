// Package redisindex stores product vectors as Redis hashes behind an FT vector index.
package redisindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/eshoplite/internal/db"
	"github.com/kailas-cloud/eshoplite/internal/domain"
)

const (
	fieldID          = "product_id"
	fieldName        = "name"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldImageURL    = "image_url"
	fieldVector      = "vector"
)

// store is the consumer interface over the rueidis db layer.
type store interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Index keeps products in HASH keys under a per-collection prefix.
// Scores are raw cosine distances: lower is closer.
type Index struct {
	store       store
	name        string
	prefix      string
	dimensions  int
	algo        db.VectorAlgorithm
	hnswM       int
	initialized atomic.Bool
}

// Option customizes the FT index created by EnsureCollection.
type Option func(*Index)

// WithHNSW builds the vector field as an HNSW graph instead of a FLAT scan.
// m <= 0 keeps the server default.
func WithHNSW(m int) Option {
	return func(ix *Index) {
		ix.algo = db.VectorHNSW
		ix.hnswM = m
	}
}

// New creates a Redis vector index for the collection.
func New(s store, collection string, dimensions int, opts ...Option) *Index {
	ix := &Index{
		store:      s,
		name:       "eshoplite:" + collection,
		prefix:     "eshoplite:" + collection + ":",
		dimensions: dimensions,
		algo:       db.VectorFlat,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// EnsureCollection creates the FT index when missing. Repeated calls after success are no-ops.
func (ix *Index) EnsureCollection(ctx context.Context) error {
	if ix.initialized.Load() {
		return nil
	}
	if ix.dimensions <= 0 {
		return fmt.Errorf("index %s: dimensions must be positive: %w", ix.name, domain.ErrVectorIndexError)
	}

	exists, err := ix.store.IndexExists(ctx, ix.name)
	if err != nil {
		return fmt.Errorf("probe index %s: %w: %w", ix.name, domain.ErrVectorIndexError, err)
	}

	if !exists {
		err := ix.store.CreateIndex(ctx, &db.IndexDefinition{
			Name:     ix.name,
			Prefixes: []string{ix.prefix},
			Fields: []db.IndexField{
				{Name: fieldID, Type: db.IndexFieldNumeric},
				{Name: fieldName, Type: db.IndexFieldText},
				{
					Name:       fieldVector,
					Type:       db.IndexFieldVector,
					VectorAlgo: ix.algo,
					VectorDim:  ix.dimensions,
					VectorM:    ix.hnswM,
				},
			},
		})
		// A concurrent creator may have won the race.
		if err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w: %w", ix.name, domain.ErrVectorIndexError, err)
		}
	}

	ix.initialized.Store(true)
	return nil
}

// Initialized reports whether EnsureCollection has succeeded.
func (ix *Index) Initialized() bool { return ix.initialized.Load() }

// Metric reports cosine distance.
func (ix *Index) Metric() domain.Metric { return domain.MetricDistance }

// Upsert overwrites the product hash. HSET on an existing key replaces its fields.
func (ix *Index) Upsert(ctx context.Context, rec domain.ProductVector) error {
	if ix.dimensions > 0 && len(rec.Vector) != ix.dimensions {
		return fmt.Errorf("product %d: vector has %d dimensions, index expects %d: %w",
			rec.ID, len(rec.Vector), ix.dimensions, domain.ErrVectorIndexError)
	}

	err := ix.store.HSet(ctx, ix.key(rec.ID), map[string]string{
		fieldID:          strconv.FormatInt(rec.ID, 10),
		fieldName:        rec.Name,
		fieldDescription: rec.Description,
		fieldPrice:       rec.Price.String(),
		fieldImageURL:    rec.ImageURL,
		fieldVector:      db.EncodeVector(rec.Vector),
	})
	if err != nil {
		return fmt.Errorf("upsert product %d: %w: %w", rec.ID, domain.ErrVectorIndexError, err)
	}
	return nil
}

// Search runs a KNN query ordered by ascending distance.
func (ix *Index) Search(ctx context.Context, vec []float32, topK int) (*domain.Matches, error) {
	if topK <= 0 {
		return domain.NewMatches(nil), nil
	}

	res, err := ix.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    ix.name,
		VectorField:  fieldVector,
		Vector:       vec,
		K:            topK,
		ReturnFields: []string{fieldID, fieldName, fieldDescription, fieldPrice, fieldImageURL},
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w: %w", ix.name, domain.ErrVectorIndexError, err)
	}

	hits := make([]domain.VectorMatch, 0, len(res.Entries))
	for _, e := range res.Entries {
		rec, ok := ix.toRecord(e)
		if !ok {
			continue
		}
		hits = append(hits, domain.VectorMatch{Record: rec, Score: e.Score})
	}
	return domain.NewMatches(hits), nil
}

func (ix *Index) key(id int64) string {
	return ix.prefix + strconv.FormatInt(id, 10)
}

func (ix *Index) toRecord(e db.SearchEntry) (domain.ProductVector, bool) {
	idStr := e.Fields[fieldID]
	if idStr == "" {
		idStr = strings.TrimPrefix(e.Key, ix.prefix)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return domain.ProductVector{}, false
	}

	rec := domain.ProductVector{
		ID:          id,
		Name:        e.Fields[fieldName],
		Description: e.Fields[fieldDescription],
		ImageURL:    e.Fields[fieldImageURL],
	}
	if price, err := decimal.NewFromString(e.Fields[fieldPrice]); err == nil {
		rec.Price = price
	}
	return rec, true
}
