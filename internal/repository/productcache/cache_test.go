package productcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// --- Mocks ---

type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	deleted []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	b, _ := value.([]byte)
	f.data[key] = string(b)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
		f.deleted = append(f.deleted, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type fakeCatalog struct {
	products  map[int64]domain.Product
	findCalls int
}

func (f *fakeCatalog) ListAll(context.Context) ([]domain.Product, error) { return nil, nil }

func (f *fakeCatalog) FindByNameOrDescriptionContains(context.Context, string, int) ([]domain.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) FindByID(_ context.Context, id int64) (domain.Product, error) {
	f.findCalls++
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	return p, nil
}

func (f *fakeCatalog) Update(_ context.Context, p domain.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeCatalog) Delete(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeCatalog) SaveEmbedding(context.Context, int64, []float32) error { return nil }

func newTestCache(rdb *fakeRedis, cat *fakeCatalog) (*Cache, *prometheus.CounterVec) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_product_cache_total"}, []string{"result"})
	return New(cat, rdb, time.Minute, counter, zap.NewNop()), counter
}

func boots() domain.Product {
	return domain.Product{ID: 1, Name: "Hiking Boots", Price: decimal.RequireFromString("129.99")}
}

// --- Tests ---

func TestFindByID_ReadThrough(t *testing.T) {
	rdb := newFakeRedis()
	cat := &fakeCatalog{products: map[int64]domain.Product{1: boots()}}
	c, counter := newTestCache(rdb, cat)
	ctx := context.Background()

	first, err := c.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := c.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if cat.findCalls != 1 {
		t.Errorf("store calls = %d, want 1", cat.findCalls)
	}
	if second.Name != first.Name || !second.Price.Equal(first.Price) {
		t.Errorf("cached product differs: %+v vs %+v", second, first)
	}
	if rdb.ttls["eshoplite:product:1"] != time.Minute {
		t.Errorf("ttl = %v, want 1m", rdb.ttls["eshoplite:product:1"])
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestFindByID_NotFoundNotCached(t *testing.T) {
	rdb := newFakeRedis()
	c, _ := newTestCache(rdb, &fakeCatalog{products: map[int64]domain.Product{}})

	_, err := c.FindByID(context.Background(), 9)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(rdb.data) != 0 {
		t.Errorf("misses must not be cached: %v", rdb.data)
	}
}

func TestFindByID_RedisDownDegrades(t *testing.T) {
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection refused")
	rdb.setErr = errors.New("connection refused")
	cat := &fakeCatalog{products: map[int64]domain.Product{1: boots()}}
	c, _ := newTestCache(rdb, cat)

	p, err := c.FindByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if p.Name != "Hiking Boots" {
		t.Errorf("unexpected product: %+v", p)
	}
}

func TestFindByID_CorruptEntryFallsThrough(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data["eshoplite:product:1"] = "{not json"
	cat := &fakeCatalog{products: map[int64]domain.Product{1: boots()}}
	c, _ := newTestCache(rdb, cat)

	if _, err := c.FindByID(context.Background(), 1); err != nil {
		t.Fatalf("find: %v", err)
	}
	if cat.findCalls != 1 {
		t.Errorf("store calls = %d, want 1", cat.findCalls)
	}
}

func TestWritesEvict(t *testing.T) {
	rdb := newFakeRedis()
	cat := &fakeCatalog{products: map[int64]domain.Product{1: boots()}}
	c, _ := newTestCache(rdb, cat)
	ctx := context.Background()

	if _, err := c.FindByID(ctx, 1); err != nil {
		t.Fatalf("warm: %v", err)
	}

	updated := boots()
	updated.Name = "Trail Boots"
	if err := c.Update(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := c.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Trail Boots" {
		t.Errorf("stale cache after update: %q", got.Name)
	}

	if err := c.SaveEmbedding(ctx, 1, []float32{1}); err != nil {
		t.Fatalf("save embedding: %v", err)
	}
	if err := c.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.FindByID(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if len(rdb.deleted) != 3 {
		t.Errorf("evictions = %d, want 3", len(rdb.deleted))
	}
}

func TestFailedWriteDoesNotEvict(t *testing.T) {
	rdb := newFakeRedis()
	c, _ := newTestCache(rdb, &fakeCatalog{products: map[int64]domain.Product{}})

	if err := c.Delete(context.Background(), 5); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(rdb.deleted) != 0 {
		t.Errorf("unexpected eviction: %v", rdb.deleted)
	}
}
