package pipeline

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/ridepulse/ridepulse/internal/observability"
)

// responseCache is a TTL-bounded LRU keyed by the normalized question
// and the schema version. Error-mode results are never stored, so a
// failed pipeline run does not shadow a later successful one.
type responseCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	order    *list.List
	entries  map[string]*list.Element
	now      func() time.Time
}

type cacheEntry struct {
	key     string
	result  Result
	expires time.Time
}

func newResponseCache(ttl time.Duration, capacity int) *responseCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &responseCache{
		ttl:      ttl,
		capacity: capacity,
		order:    list.New(),
		entries:  map[string]*list.Element{},
		now:      time.Now,
	}
}

func (c *responseCache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		observability.ObserveCacheLookup(false)
		return Result{}, false
	}
	entry := element.Value.(*cacheEntry)
	if c.now().After(entry.expires) {
		c.order.Remove(element)
		delete(c.entries, key)
		observability.ObserveCacheLookup(false)
		return Result{}, false
	}
	c.order.MoveToFront(element)
	observability.ObserveCacheLookup(true)
	return entry.result, true
}

func (c *responseCache) put(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		entry := element.Value.(*cacheEntry)
		entry.result = result
		entry.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(element)
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	entry := &cacheEntry{key: key, result: result, expires: c.now().Add(c.ttl)}
	c.entries[key] = c.order.PushFront(entry)
}

// cacheKey folds case and whitespace so trivially rephrased questions
// hit the same entry, and binds the key to the schema version so a
// dataset reshape invalidates everything at once.
func cacheKey(question, schemaVersion string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	normalized = strings.Join(strings.Fields(normalized), " ")
	normalized = strings.TrimRight(normalized, "?!. ")
	return schemaVersion + "|" + normalized
}
