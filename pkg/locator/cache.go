package locator

import "sync"

// DefaultCacheSize bounds the shared cache used by Cached.
const DefaultCacheSize = 1024

type cacheEntry struct {
	sel *Selector
	err error
}

// Cache memoizes Parse by source string. Both results and parse errors are
// kept. When the cache reaches its limit it is cleared.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	limit   int
}

// NewCache creates a cache holding at most limit entries (limit <= 0 means
// DefaultCacheSize).
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &Cache{entries: make(map[string]cacheEntry), limit: limit}
}

// Parse returns the memoized result for text, parsing it on first use.
func (c *Cache) Parse(text string) (*Selector, error) {
	c.mu.RLock()
	e, ok := c.entries[text]
	c.mu.RUnlock()
	if ok {
		return e.sel, e.err
	}

	sel, err := Parse(text)

	c.mu.Lock()
	if len(c.entries) >= c.limit {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[text] = cacheEntry{sel: sel, err: err}
	c.mu.Unlock()
	return sel, err
}

// Len returns the number of memoized entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var shared = NewCache(DefaultCacheSize)

// Cached parses text through the process-wide cache.
func Cached(text string) (*Selector, error) {
	return shared.Parse(text)
}

// MustParse is like Parse but panics on error. For tests and constants.
func MustParse(text string) *Selector {
	sel, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return sel
}
