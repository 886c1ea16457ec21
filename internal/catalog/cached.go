package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ashureev/shopassist/internal/cache"
	"github.com/ashureev/shopassist/internal/domain"
)

// DefaultCacheTTL is how long a fetched listing is reused.
const DefaultCacheTTL = 5 * time.Minute

var listingKey = cache.Key("catalog", "products")

// Cached reuses a listing for ttl before asking source again. Cache errors
// are logged and treated as misses.
type Cached struct {
	source Lister
	cache  cache.Client
	ttl    time.Duration
}

// NewCached wraps source with a listing cache.
func NewCached(source Lister, c cache.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{source: source, cache: c, ttl: ttl}
}

// Products returns the cached listing, refreshing it from source on a miss.
func (c *Cached) Products(ctx context.Context) ([]domain.Product, error) {
	data, err := c.cache.Get(ctx, listingKey)
	if err == nil {
		var products []domain.Product
		jsonErr := json.Unmarshal(data, &products)
		if jsonErr == nil {
			slog.Debug("Using cached products", "count", len(products))
			return products, nil
		}
		slog.Warn("Discarding undecodable cached listing", "error", jsonErr)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("Product cache read failed", "error", err)
	}

	products, err := c.source.Products(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(products); err != nil {
		slog.Warn("Failed to encode listing for cache", "error", err)
	} else if err := c.cache.Set(ctx, listingKey, data, c.ttl); err != nil {
		slog.Warn("Product cache write failed", "error", err)
	}
	return products, nil
}

// Invalidate drops the cached listing.
func (c *Cached) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx, listingKey)
}
