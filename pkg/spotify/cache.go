package spotify

import (
	"container/list"
	"net/url"
	"strconv"
	"sync"
	"time"

	"Melopick-Go/pkg/metrics"
)

const (
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheBucket     = 30 * time.Minute
	defaultCacheMaxEntries = 500
)

type cacheEntry struct {
	key     string
	data    []byte
	created time.Time
}

// Cache memoizes raw catalog responses for idempotent queries. Entries live
// for a fixed TTL and the store is bounded, evicting the oldest entry first.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	bucket     time.Duration
	maxEntries int
	now        func() time.Time

	entries map[string]*list.Element
	order   *list.List // front is oldest
	stats   CacheStats
}

// CacheStats tracks cache effectiveness.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// NewCache returns a cache. Zero values select a 5 minute TTL, a 30 minute
// key bucket and 500 entries. A negative bucket disables time bucketing.
func NewCache(ttl, bucket time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if bucket == 0 {
		bucket = defaultCacheBucket
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	return &Cache{
		ttl:        ttl,
		bucket:     bucket,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Key builds the cache key from the operation name, the parameters in sorted
// order and the current coarse time bucket.
func (c *Cache) Key(op string, params url.Values) string {
	key := op + "?" + params.Encode()
	if c.bucket > 0 {
		key += "@" + strconv.FormatInt(c.now().Truncate(c.bucket).Unix(), 10)
	}
	return key
}

// Get returns the payload stored under key if it has not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		metrics.CacheMisses.Inc()
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	if c.now().Sub(e.created) >= c.ttl {
		c.removeElement(el)
		c.stats.Misses++
		metrics.CacheMisses.Inc()
		return nil, false
	}
	c.stats.Hits++
	metrics.CacheHits.Inc()
	return e.data, true
}

// Set stores data under key, evicting the oldest entries beyond the bound.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, data: data, created: c.now()})
	for c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Front())
		c.stats.Evictions++
		metrics.CacheEvictions.Inc()
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.order.Len()
	return s
}

func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*cacheEntry)
	delete(c.entries, e.key)
	c.order.Remove(el)
}
