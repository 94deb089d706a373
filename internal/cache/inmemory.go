package cache

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

const (
	// DefaultExpiration applies when the cache is built without a TTL
	DefaultExpiration = 30 * time.Minute
	// DefaultCleanupInterval is how often expired entries are evicted
	DefaultCleanupInterval = time.Hour
)

// InMemoryCache is a process-local Cache backed by go-cache
type InMemoryCache struct {
	cache *goCache.Cache
}

// NewInMemoryCache builds a cache whose entries live for ttl. A non-positive
// ttl falls back to DefaultExpiration.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &InMemoryCache{cache: goCache.New(ttl, DefaultCleanupInterval)}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = goCache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}

// Len is the number of entries, expired ones included until cleanup
func (c *InMemoryCache) Len() int {
	return c.cache.ItemCount()
}
