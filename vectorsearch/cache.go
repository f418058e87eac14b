package vectorsearch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheTTL = 5 * time.Minute

// Cache is the SearchCacheEntry store (§3): LRU with TTL expiry,
// keyed on the query shape rather than the full query vector.
type Cache struct {
	inner *lru.LRU[string, []Result]
}

// NewCache creates a Cache with the given capacity and TTL. Zero or
// negative values fall back to sane defaults (1,000 entries, 5m).
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{inner: lru.NewLRU[string, []Result](capacity, nil, ttl)}
}

// Get retrieves a cached result set by key.
func (c *Cache) Get(key string) ([]Result, bool) {
	return c.inner.Get(key)
}

// Set stores a result set under key.
func (c *Cache) Set(key string, results []Result) {
	c.inner.Add(key, results)
}

// cacheKeyFor builds the SearchCacheEntry key: user id, metric,
// threshold, limit, doc-type filter set, and a rounded fingerprint of
// the query vector's first 16 dimensions (§3) — never the full vector,
// so near-identical queries still share a cache entry.
func cacheKeyFor(q Query) string {
	types := make([]string, len(q.DocTypeFilter))
	for i, dt := range q.DocTypeFilter {
		types[i] = string(dt)
	}
	sort.Strings(types)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.3f|%d|%v|%s", q.UserID, q.Metric, q.Threshold, q.Limit, types, vectorFingerprint(q.Vector))
	return hex.EncodeToString(h.Sum(nil))
}

func vectorFingerprint(v []float32) string {
	n := len(v)
	if n > 16 {
		n = 16
	}
	out := ""
	for i := 0; i < n; i++ {
		out += fmt.Sprintf("%.3f,", v[i])
	}
	return out
}
