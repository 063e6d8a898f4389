// Package cache memoizes station resolution for the duration of a run.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
	"github.com/couchcryptid/wind-stations-etl/internal/observability"
)

// CachedResolver wraps a Resolver with an in-memory cache keyed by
// (ICAO, station name). Unresolved outcomes are cached as well, so a station
// that failed once is not retried in the same run.
type CachedResolver struct {
	inner   domain.Resolver
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator. A maxEntries of zero or less
// leaves the cache unbounded.
func NewCachedResolver(inner domain.Resolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, icao, station string) domain.Resolution {
	key := Key(icao, station)
	if res, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return res
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	res := c.inner.Resolve(ctx, icao, station)
	if ctx.Err() != nil {
		// A cancelled lookup says nothing about the station.
		return res
	}
	c.cache.put(key, res)
	return res
}

// Len returns the number of cached entries.
func (c *CachedResolver) Len() int {
	return c.cache.len()
}

// Key builds the cache key for a station.
func Key(icao, station string) string {
	return strings.ToUpper(strings.TrimSpace(icao)) + "|" + strings.TrimSpace(station)
}

// lruCache is a thread-safe LRU cache of resolutions.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type entry struct {
	key   string
	value domain.Resolution
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (domain.Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.Resolution{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value domain.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})

	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
