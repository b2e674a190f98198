package qdrantindex

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// --- Mocks ---

type fakeClient struct {
	exists      bool
	existsErr   error
	createCalls int
	created     *qdrant.CreateCollection
	upserts     []*qdrant.UpsertPoints
	upsertErr   error
	lastQuery   *qdrant.QueryPoints
	points      []*qdrant.ScoredPoint
	queryErr    error
}

func (f *fakeClient) CollectionExists(_ context.Context, _ string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeClient) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.createCalls++
	f.created = req
	f.exists = true
	return nil
}

func (f *fakeClient) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserts = append(f.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.lastQuery = req
	return f.points, f.queryErr
}

// --- Tests ---

func TestEnsureCollection_CreatesOnce(t *testing.T) {
	fc := &fakeClient{}
	ix := New(fc, "products", 4)
	ctx := context.Background()

	for range 3 {
		if err := ix.EnsureCollection(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if fc.createCalls != 1 {
		t.Fatalf("expected 1 create call, got %d", fc.createCalls)
	}
	params := fc.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 4 || params.GetDistance() != qdrant.Distance_Cosine {
		t.Errorf("unexpected vector params: %+v", params)
	}
	if !ix.Initialized() {
		t.Error("expected initialized")
	}
}

func TestEnsureCollection_ExistingCollection(t *testing.T) {
	fc := &fakeClient{exists: true}
	ix := New(fc, "products", 4)
	if err := ix.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.createCalls != 0 {
		t.Errorf("should not create an existing collection")
	}
}

func TestEnsureCollection_Errors(t *testing.T) {
	ix := New(&fakeClient{existsErr: errors.New("unavailable")}, "products", 4)
	err := ix.EnsureCollection(context.Background())
	if !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("expected ErrVectorIndexError, got %v", err)
	}
	if ix.Initialized() {
		t.Error("must not be initialized after failure")
	}

	if err := New(&fakeClient{}, "products", 0).EnsureCollection(context.Background()); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestUpsert_WritesPayload(t *testing.T) {
	fc := &fakeClient{}
	ix := New(fc, "products", 2)

	err := ix.Upsert(context.Background(), domain.ProductVector{
		ID:       7,
		Name:     "Camping Stove",
		Price:    decimal.RequireFromString("49.99"),
		ImageURL: "stove.png",
		Vector:   []float32{0.1, 0.2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pt := fc.upserts[0].GetPoints()[0]
	if pt.GetId().GetNum() != 7 {
		t.Errorf("unexpected id: %v", pt.GetId())
	}
	if pt.GetPayload()["name"].GetStringValue() != "Camping Stove" {
		t.Errorf("unexpected payload: %v", pt.GetPayload())
	}
	if pt.GetPayload()["price"].GetStringValue() != "49.99" {
		t.Errorf("unexpected price: %v", pt.GetPayload()["price"])
	}
}

func TestUpsert_Error(t *testing.T) {
	ix := New(&fakeClient{upsertErr: errors.New("boom")}, "products", 2)
	err := ix.Upsert(context.Background(), domain.ProductVector{ID: 1, Vector: []float32{1, 0}})
	if !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("expected ErrVectorIndexError, got %v", err)
	}
}

func TestSearch_MapsPoints(t *testing.T) {
	fc := &fakeClient{points: []*qdrant.ScoredPoint{
		{
			Id:    qdrant.NewIDNum(3),
			Score: 0.87,
			Payload: qdrant.NewValueMap(map[string]any{
				"name":        "Trail Backpack",
				"description": "40L",
				"price":       "129.5",
				"image_url":   "pack.png",
			}),
		},
		{Id: qdrant.NewIDNum(9), Score: 0.4},
	}}
	ix := New(fc, "products", 2)

	m, err := ix.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.lastQuery.GetLimit() != 3 {
		t.Errorf("expected limit 3, got %d", fc.lastQuery.GetLimit())
	}

	var hits []domain.VectorMatch
	for h := range m.All() {
		hits = append(hits, h)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	first := hits[0]
	if first.Record.ID != 3 || first.Record.Name != "Trail Backpack" || !first.Record.Price.Equal(decimal.RequireFromString("129.5")) {
		t.Errorf("unexpected record: %+v", first.Record)
	}
	if first.Score < 0.869 || first.Score > 0.871 {
		t.Errorf("unexpected score: %v", first.Score)
	}
	if hits[1].Record.Name != "" {
		t.Errorf("missing payload should map to zero values, got %+v", hits[1].Record)
	}
}

func TestSearch_Error(t *testing.T) {
	ix := New(&fakeClient{queryErr: errors.New("timeout")}, "products", 2)
	if _, err := ix.Search(context.Background(), []float32{1, 0}, 3); !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("expected ErrVectorIndexError, got %v", err)
	}
}
