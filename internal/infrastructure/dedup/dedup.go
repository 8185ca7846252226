package dedup

import (
	lru "github.com/hashicorp/golang-lru"
)

// Cache remembers recently processed update identifiers so duplicate
// webhook deliveries can be dropped. Capacity bounds memory; the exact
// value is a tunable, not a correctness knob.
type Cache struct {
	seen *lru.Cache
}

// New builds a cache that remembers the last capacity ids.
func New(capacity int) (*Cache, error) {
	seen, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{seen: seen}, nil
}

// Seen records id and reports whether it was already present.
func (c *Cache) Seen(id int) bool {
	previous, _ := c.seen.ContainsOrAdd(id, struct{}{})
	return previous
}

// Len returns the number of remembered ids.
func (c *Cache) Len() int {
	return c.seen.Len()
}
