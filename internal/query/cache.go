package query

import (
	"container/list"
	"sync"
	"time"

	"github.com/Martificial-UK/trail/internal/seglog"
)

// lruCache is a fixed-capacity result cache with TTL expiry. The eviction
// policy is explicit: move-to-front on access, evict the tail on overflow.
// Safe for concurrent use by any querying goroutine.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	ll       *list.List
	items    map[string]*list.Element
}

type cacheEntry struct {
	key     string
	results []seglog.Record
	created time.Time
}

func newLRUCache(capacity int, ttl time.Duration) *lruCache {
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// get returns a live entry, refreshing its recency. Expired entries are
// removed on the spot and reported as misses. The returned slice is the
// caller's own; mutating it cannot corrupt later hits.
func (c *lruCache) get(key string) ([]seglog.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Since(entry.created) >= c.ttl {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.ll.MoveToFront(el)
	out := make([]seglog.Record, len(entry.results))
	copy(out, entry.results)
	return out, true
}

// put stores its own copy of results, so the slice the querying caller got
// back stays theirs to reorder or append to.
func (c *lruCache) put(key string, results []seglog.Record) {
	stored := make([]seglog.Record, len(results))
	copy(stored, results)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.results = stored
		entry.created = time.Now()
		c.ll.MoveToFront(el)
		return
	}
	for c.ll.Len() >= c.capacity {
		tail := c.ll.Back()
		if tail == nil {
			break
		}
		c.ll.Remove(tail)
		delete(c.items, tail.Value.(*cacheEntry).key)
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, results: stored, created: time.Now()})
}

// invalidate drops every entry.
func (c *lruCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
