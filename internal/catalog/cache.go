package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/danuputra/tokoku/internal/domain"
)

const (
	activeListKey = "catalog:products:active"
	slugKeyPrefix = "catalog:product:"
)

// Store is the slice of the Redis client the cache needs. The instrumented
// client in pkg/redis satisfies it, so catalog traffic shows up in the Redis
// metrics.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache provides Redis-backed caching for the storefront catalog. The cache
// is read-through: misses fall back to the gateway and a nil client degrades
// to a no-op, the storefront works without Redis.
type Cache struct {
	client Store
	ttl    time.Duration
}

// NewCache constructs a catalog cache backed by the provided Redis client.
func NewCache(client Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Cache{client: client, ttl: ttl}
}

// GetActiveList fetches the cached active product list if it exists.
func (c *Cache) GetActiveList(ctx context.Context) ([]domain.Product, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, activeListKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached product list: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		return nil, fmt.Errorf("decode cached product list: %w", err)
	}

	return products, nil
}

// SetActiveList stores the active product list.
func (c *Cache) SetActiveList(ctx context.Context, products []domain.Product) error {
	if c == nil || c.client == nil || products == nil {
		return nil
	}

	payload, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode product list for cache: %w", err)
	}

	if err := c.client.Set(ctx, activeListKey, payload, c.ttl); err != nil {
		return fmt.Errorf("set cached product list: %w", err)
	}

	return nil
}

// GetBySlug fetches a cached product if it exists.
func (c *Cache) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, slugKeyPrefix+slug)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached product: %w", err)
	}

	var product domain.Product
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		return nil, fmt.Errorf("decode cached product: %w", err)
	}

	return &product, nil
}

// SetBySlug stores one product under its slug.
func (c *Cache) SetBySlug(ctx context.Context, product *domain.Product) error {
	if c == nil || c.client == nil || product == nil || product.Slug == "" {
		return nil
	}

	payload, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("encode product for cache: %w", err)
	}

	if err := c.client.Set(ctx, slugKeyPrefix+product.Slug, payload, c.ttl); err != nil {
		return fmt.Errorf("set cached product: %w", err)
	}

	return nil
}

// Invalidate drops the list entry and, when slug is non-empty, the per-slug
// entry. Called after every catalog mutation.
func (c *Cache) Invalidate(ctx context.Context, slug string) error {
	if c == nil || c.client == nil {
		return nil
	}

	keys := []string{activeListKey}
	if slug != "" {
		keys = append(keys, slugKeyPrefix+slug)
	}

	for _, key := range keys {
		if err := c.client.Delete(ctx, key); err != nil {
			return fmt.Errorf("invalidate catalog cache: %w", err)
		}
	}

	return nil
}
