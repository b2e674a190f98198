package redisindex

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/eshoplite/internal/db"
	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// --- Mocks ---

type mockStore struct {
	exists    bool
	existsErr error
	createErr error
	created   []*db.IndexDefinition
	hsets     map[string]map[string]string
	hsetErr   error
	lastQuery *db.KNNQuery
	result    *db.SearchResult
	searchErr error
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = append(m.created, def)
	return m.createErr
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	if m.hsets == nil {
		m.hsets = make(map[string]map[string]string)
	}
	m.hsets[key] = fields
	return nil
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastQuery = q
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.result == nil {
		return &db.SearchResult{}, nil
	}
	return m.result, nil
}

// --- Tests ---

func TestEnsureCollection_CreatesIndex(t *testing.T) {
	ms := &mockStore{}
	ix := New(ms, "products", 3)

	if err := ix.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ix.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.created) != 1 {
		t.Fatalf("expected 1 create, got %d", len(ms.created))
	}
	def := ms.created[0]
	if def.Name != "eshoplite:products" || def.Prefixes[0] != "eshoplite:products:" {
		t.Errorf("unexpected definition: %+v", def)
	}
	if err := def.Validate(); err != nil {
		t.Errorf("definition should be valid: %v", err)
	}
}

func TestEnsureCollection_Algorithm(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		algo  db.VectorAlgorithm
		hnswM int
	}{
		{name: "flat by default", algo: db.VectorFlat},
		{name: "hnsw", opts: []Option{WithHNSW(24)}, algo: db.VectorHNSW, hnswM: 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &mockStore{}
			ix := New(ms, "products", 3, tt.opts...)
			if err := ix.EnsureCollection(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var vec *db.IndexField
			for i := range ms.created[0].Fields {
				if ms.created[0].Fields[i].Type == db.IndexFieldVector {
					vec = &ms.created[0].Fields[i]
				}
			}
			if vec == nil {
				t.Fatal("no vector field in definition")
			}
			if vec.VectorAlgo != tt.algo || vec.VectorM != tt.hnswM {
				t.Errorf("vector field = %+v, want algo %s m %d", *vec, tt.algo, tt.hnswM)
			}
			if ix.Metric() != domain.MetricDistance {
				t.Error("metric must stay cosine distance")
			}
		})
	}
}

func TestEnsureCollection_AlreadyExistsRace(t *testing.T) {
	ms := &mockStore{createErr: db.ErrIndexExists}
	ix := New(ms, "products", 3)
	if err := ix.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("ErrIndexExists should be treated as success: %v", err)
	}
	if !ix.Initialized() {
		t.Error("expected initialized")
	}
}

func TestEnsureCollection_Failure(t *testing.T) {
	ms := &mockStore{existsErr: errors.New("LOADING")}
	ix := New(ms, "products", 3)
	if err := ix.EnsureCollection(context.Background()); !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("expected ErrVectorIndexError, got %v", err)
	}
	if ix.Initialized() {
		t.Error("must not be initialized after failure")
	}
}

func TestUpsert_WritesHash(t *testing.T) {
	ms := &mockStore{}
	ix := New(ms, "products", 2)

	err := ix.Upsert(context.Background(), domain.ProductVector{
		ID: 5, Name: "Lantern", Vector: []float32{1, 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields, ok := ms.hsets["eshoplite:products:5"]
	if !ok {
		t.Fatalf("expected hash at eshoplite:products:5, got %v", ms.hsets)
	}
	if fields["name"] != "Lantern" || fields["product_id"] != "5" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if len(fields["vector"]) != 8 {
		t.Errorf("expected 8-byte vector blob, got %d", len(fields["vector"]))
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	ix := New(&mockStore{}, "products", 3)
	err := ix.Upsert(context.Background(), domain.ProductVector{ID: 1, Vector: []float32{1}})
	if !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("expected ErrVectorIndexError, got %v", err)
	}
}

func TestSearch_RawDistances(t *testing.T) {
	ms := &mockStore{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: "eshoplite:products:1", Score: 0.12, Fields: map[string]string{
				"product_id": "1", "name": "Hiking Boots", "price": "89.99",
			}},
			{Key: "eshoplite:products:4", Score: 0.61, Fields: map[string]string{"name": "Kayak"}},
			{Key: "garbage", Score: 0.7, Fields: map[string]string{}},
		},
	}}
	ix := New(ms, "products", 2)

	m, err := ix.Search(context.Background(), []float32{0, 1}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.lastQuery.K != 3 || ms.lastQuery.VectorField != "vector" {
		t.Errorf("unexpected query: %+v", ms.lastQuery)
	}
	if ix.Metric() != domain.MetricDistance {
		t.Error("expected distance metric")
	}

	var hits []domain.VectorMatch
	for h := range m.All() {
		hits = append(hits, h)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 parseable hits, got %d", len(hits))
	}
	if hits[0].Record.ID != 1 || hits[0].Score != 0.12 || hits[0].Record.Price.String() != "89.99" {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].Record.ID != 4 {
		t.Errorf("id should fall back to the key suffix, got %d", hits[1].Record.ID)
	}
}

func TestSearch_Error(t *testing.T) {
	ix := New(&mockStore{searchErr: errors.New("timeout")}, "products", 2)
	if _, err := ix.Search(context.Background(), []float32{0, 1}, 3); !errors.Is(err, domain.ErrVectorIndexError) {
		t.Fatalf("expected ErrVectorIndexError, got %v", err)
	}
}
