package dataset

import (
	"path/filepath"
	"sync"
)

// Cache memoizes prepared datasets by path. Concurrent callers asking for
// the same path share one load; a failed load is cached as well.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	ds   *Dataset
	err  error
}

// Get loads and prepares path on first use.
func (c *Cache) Get(path string) (*Dataset, error) {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	c.mu.Lock()
	if c.entries == nil {
		c.entries = map[string]*cacheEntry{}
	}
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		raw, err := Load(path)
		if err != nil {
			e.err = err
			return
		}
		e.ds, e.err = Prepare(raw)
	})
	return e.ds, e.err
}

// Forget drops a cached entry so the next Get reloads it.
func (c *Cache) Forget(path string) {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
