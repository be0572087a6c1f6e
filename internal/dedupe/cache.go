package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry struct {
	key  string
	seen time.Time
}

// Cache remembers recently handled keys, bounded by both capacity and ttl.
// The worker uses it to drop request envelopes that Kafka redelivers.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Contains reports whether key was added within the ttl window.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire(c.now())
	_, ok := c.entries[key]
	return ok
}

// Add records key as handled, refreshing it if already present.
func (c *Cache) Add(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.add(key, c.now())
}

// Len returns the number of live keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire(c.now())
	return len(c.entries)
}

func (c *Cache) add(key string, now time.Time) {
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
	}
	c.entries[key] = c.order.PushBack(cacheEntry{key: key, seen: now})

	c.expire(now)
	for c.order.Len() > c.capacity {
		c.evict(c.order.Front())
	}
}

// expire drops entries older than ttl; the list is ordered oldest first.
func (c *Cache) expire(now time.Time) {
	cutoff := now.Add(-c.ttl)
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		if !el.Value.(cacheEntry).seen.Before(cutoff) {
			return
		}
		c.evict(el)
	}
}

func (c *Cache) evict(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(cacheEntry).key)
}
