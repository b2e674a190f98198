// Package qdrantindex stores product vectors in a Qdrant collection.
package qdrantindex

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/qdrant/go-client/qdrant"
	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// client is the subset of *qdrant.Client the index needs.
type client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// Config holds Qdrant connection and collection parameters.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
}

// Index is a Qdrant-backed vector index using cosine similarity.
type Index struct {
	client      client
	collection  string
	dimensions  int
	initialized atomic.Bool
}

// Dial connects to Qdrant over gRPC.
func Dial(cfg Config) (*Index, *qdrant.Client, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("qdrant client: %w", err)
	}
	return New(c, cfg.Collection, cfg.Dimensions), c, nil
}

// New wraps an existing client.
func New(c client, collection string, dimensions int) *Index {
	return &Index{client: c, collection: collection, dimensions: dimensions}
}

// EnsureCollection creates the collection when missing. Repeated calls after success are no-ops.
func (ix *Index) EnsureCollection(ctx context.Context) error {
	if ix.initialized.Load() {
		return nil
	}
	if ix.dimensions <= 0 {
		return fmt.Errorf("collection %s: dimensions must be positive: %w", ix.collection, domain.ErrVectorIndexError)
	}

	exists, err := ix.client.CollectionExists(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w: %w", ix.collection, domain.ErrVectorIndexError, err)
	}

	if !exists {
		if err := ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: ix.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(ix.dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("create collection %s: %w: %w", ix.collection, domain.ErrVectorIndexError, err)
		}
	}

	ix.initialized.Store(true)
	return nil
}

// Initialized reports whether EnsureCollection has succeeded.
func (ix *Index) Initialized() bool { return ix.initialized.Load() }

// Metric reports cosine similarity: higher is closer.
func (ix *Index) Metric() domain.Metric { return domain.MetricSimilarity }

// Upsert writes the product as a point keyed by its numeric id.
func (ix *Index) Upsert(ctx context.Context, rec domain.ProductVector) error {
	if rec.ID < 0 {
		return fmt.Errorf("product %d: negative id: %w", rec.ID, domain.ErrVectorIndexError)
	}

	wait := true
	_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ix.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDNum(uint64(rec.ID)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"name":        rec.Name,
				"description": rec.Description,
				"price":       rec.Price.String(),
				"image_url":   rec.ImageURL,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert product %d: %w: %w", rec.ID, domain.ErrVectorIndexError, err)
	}
	return nil
}

// Search queries the nearest points. Qdrant returns them ordered by descending score.
func (ix *Index) Search(ctx context.Context, vec []float32, topK int) (*domain.Matches, error) {
	if topK <= 0 {
		return domain.NewMatches(nil), nil
	}

	limit := uint64(topK)
	points, err := ix.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(vec...),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w: %w", ix.collection, domain.ErrVectorIndexError, err)
	}

	hits := make([]domain.VectorMatch, 0, len(points))
	for _, p := range points {
		hits = append(hits, domain.VectorMatch{Record: toRecord(p), Score: float64(p.GetScore())})
	}
	return domain.NewMatches(hits), nil
}

func toRecord(p *qdrant.ScoredPoint) domain.ProductVector {
	payload := p.GetPayload()
	rec := domain.ProductVector{
		ID:          int64(p.GetId().GetNum()),
		Name:        payload["name"].GetStringValue(),
		Description: payload["description"].GetStringValue(),
		ImageURL:    payload["image_url"].GetStringValue(),
	}
	if price, err := decimal.NewFromString(payload["price"].GetStringValue()); err == nil {
		rec.Price = price
	}
	return rec
}
