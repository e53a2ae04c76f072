package soilgrids

import (
	"context"
	"fmt"
	"sync"

	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
)

// CachedSource wraps a Source with an in-memory LRU cache keyed by property
// and coordinate. Repeated lookups for the same cell skip the API entirely.
type CachedSource struct {
	inner   domain.Source
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedSource creates a caching decorator around a Source. maxEntries
// bounds the cache; the least recently used observation is evicted first.
func NewCachedSource(inner domain.Source, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// FetchProperty returns a cached observation when one exists, otherwise
// delegates to the wrapped source.
func (c *CachedSource) FetchProperty(ctx context.Context, coord domain.Coordinate, prop domain.Property) (domain.Observation, error) {
	key := cacheKey(prop, coord)
	if obs, ok := c.cache.get(key); ok {
		c.metrics.ProviderCache.WithLabelValues("hit").Inc()
		return obs, nil
	}
	c.metrics.ProviderCache.WithLabelValues("miss").Inc()

	obs, err := c.inner.FetchProperty(ctx, coord, prop)
	if err != nil {
		return domain.Observation{}, err
	}

	// Only cache observations that carry a value so empty responses can be
	// retried on a later request.
	if obs.Value != nil {
		c.cache.put(key, obs)
	}

	return obs, nil
}

func cacheKey(prop domain.Property, coord domain.Coordinate) string {
	return fmt.Sprintf("%s:%.6f,%.6f", prop, coord.Lat, coord.Lon)
}

// lruCache is a fixed-capacity LRU cache backed by a map and a doubly
// linked list. The list head is the most recently used entry. Safe for
// concurrent use.
type lruCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*cacheEntry
	head       *cacheEntry
	tail       *cacheEntry
}

type cacheEntry struct {
	key   string
	value domain.Observation
	prev  *cacheEntry
	next  *cacheEntry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

func (l *lruCache) get(key string) (domain.Observation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return domain.Observation{}, false
	}
	l.moveToFront(entry)
	return entry.value, true
}

func (l *lruCache) put(key string, value domain.Observation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.entries[key]; ok {
		entry.value = value
		l.moveToFront(entry)
		return
	}

	entry := &cacheEntry{key: key, value: value}
	l.entries[key] = entry
	l.addToFront(entry)

	if len(l.entries) > l.maxEntries {
		l.evictTail()
	}
}

func (l *lruCache) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *lruCache) moveToFront(entry *cacheEntry) {
	if l.head == entry {
		return
	}
	l.remove(entry)
	l.addToFront(entry)
}

func (l *lruCache) addToFront(entry *cacheEntry) {
	entry.prev = nil
	entry.next = l.head
	if l.head != nil {
		l.head.prev = entry
	}
	l.head = entry
	if l.tail == nil {
		l.tail = entry
	}
}

func (l *lruCache) remove(entry *cacheEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		l.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		l.tail = entry.prev
	}
	entry.prev = nil
	entry.next = nil
}

func (l *lruCache) evictTail() {
	if l.tail == nil {
		return
	}
	evicted := l.tail
	l.remove(evicted)
	delete(l.entries, evicted.key)
}
