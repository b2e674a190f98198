// Package productcache is a Redis read-through cache in front of the catalog store.
package productcache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

const keyPrefix = "eshoplite:product:"

// redisClient is the consumer interface over go-redis (ISP).
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// catalog is the wrapped store.
type catalog interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id int64) (domain.Product, error)
	FindByNameOrDescriptionContains(ctx context.Context, term string, limit int) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id int64) error
	SaveEmbedding(ctx context.Context, id int64, vec []float32) error
}

// Cache caches FindByID results; writes go to the store and evict the key.
// Cache failures degrade to the store.
type Cache struct {
	inner      catalog
	rdb        redisClient
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New wraps inner with a cache. cacheTotal has label "result" ("hit"/"miss").
func New(inner catalog, rdb redisClient, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{inner: inner, rdb: rdb, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// ListAll is not cached.
func (c *Cache) ListAll(ctx context.Context) ([]domain.Product, error) {
	return c.inner.ListAll(ctx)
}

// FindByNameOrDescriptionContains is not cached.
func (c *Cache) FindByNameOrDescriptionContains(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	return c.inner.FindByNameOrDescriptionContains(ctx, term, limit)
}

// FindByID reads through the cache. Misses (including ErrNotFound) are not cached.
func (c *Cache) FindByID(ctx context.Context, id int64) (domain.Product, error) {
	key := cacheKey(id)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p domain.Product
		jerr := json.Unmarshal(data, &p)
		if jerr == nil {
			c.inc("hit")
			return p, nil
		}
		c.logger.Warn("Failed to decode cached product", zap.String("key", key), zap.Error(jerr))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Failed to read product cache", zap.String("key", key), zap.Error(err))
	}

	c.inc("miss")

	p, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache product", zap.String("key", key), zap.Error(err))
		}
	}
	return p, nil
}

// Create is passed through; new ids are never cached yet.
func (c *Cache) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	return c.inner.Create(ctx, p)
}

// Update writes to the store and evicts the cached entry.
func (c *Cache) Update(ctx context.Context, p domain.Product) error {
	if err := c.inner.Update(ctx, p); err != nil {
		return err
	}
	c.evict(ctx, p.ID)
	return nil
}

// Delete removes from the store and evicts the cached entry.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

// SaveEmbedding writes to the store and evicts the cached entry.
func (c *Cache) SaveEmbedding(ctx context.Context, id int64, vec []float32) error {
	if err := c.inner.SaveEmbedding(ctx, id, vec); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *Cache) evict(ctx context.Context, id int64) {
	if err := c.rdb.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.Warn("Failed to evict cached product", zap.Int64("product_id", id), zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
