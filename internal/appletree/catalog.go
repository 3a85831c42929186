package appletree

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCacheTTL is how long catalog lookups are served from cache.
const DefaultCacheTTL = 5 * time.Minute

// catalogCache caches catalog lookups keyed by their filter tuple.
//
// One timestamp covers the whole cache: entries are invalidated en masse when
// the TTL expires or on an explicit clear, never individually. Concurrent
// readers during a refresh may see stale data until the in-flight fetch
// overwrites the entry - acceptable for a read-only product catalog.
type catalogCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	fetchedAt time.Time
	entries   map[string]any
}

func newCatalogCache(ttl time.Duration) *catalogCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &catalogCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]any),
	}
}

// get returns the cached value for key if the cache is still fresh.
func (c *catalogCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) > c.ttl {
		return nil, false
	}
	v, ok := c.entries[key]
	return v, ok
}

// put stores a value and refreshes the cache-wide timestamp. If the TTL had
// already expired, the stale entries are dropped first so the new timestamp
// does not resurrect them.
func (c *catalogCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) > c.ttl {
		c.entries = make(map[string]any)
	}
	c.entries[key] = value
	c.fetchedAt = c.now()
}

// clear drops every entry.
func (c *catalogCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	c.fetchedAt = time.Time{}
}

// cache keys: one per filter tuple.

func countriesKey() string { return "countries" }
func servicesKey() string  { return "services" }

func providersKey(f ProviderFilter) string {
	return fmt.Sprintf("providers:%s:%d", f.CountryCode, f.ServiceID)
}

func productsKey(f ProductFilter) string {
	provider := "all"
	if f.ServiceProviderID != 0 {
		provider = fmt.Sprintf("%d", f.ServiceProviderID)
	}
	return fmt.Sprintf("products:%s:%d:%s", f.CountryCode, f.ServiceID, provider)
}
