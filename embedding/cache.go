package embedding

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is the EmbeddingCacheEntry store (§3): LRU with capacity bound
// and TTL expiry on read, backed directly by hashicorp/golang-lru's
// expirable sub-package.
type Cache struct {
	inner *lru.LRU[string, Vector]
}

// NewCache creates a Cache with the given capacity and TTL. Zero or
// negative values fall back to sane defaults (10,000 entries, 24h).
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{inner: lru.NewLRU[string, Vector](capacity, nil, ttl)}
}

// Get retrieves a cached vector by key.
func (c *Cache) Get(key string) (Vector, bool) {
	return c.inner.Get(key)
}

// Set stores a vector under key.
func (c *Cache) Set(key string, v Vector) {
	c.inner.Add(key, v)
}
