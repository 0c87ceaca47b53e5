// Package blockcache keeps recently decoded blocks in memory.
//
// Cached buffers are shared between reads and must be treated as read-only
// by every caller.
package blockcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/robert-malhotra/go-knossos/internal/grid"
	"github.com/robert-malhotra/go-knossos/internal/metrics"
)

// Cache is a fixed-size LRU of decoded blocks keyed by grid coordinate.
// A nil *Cache is valid and never holds anything.
type Cache struct {
	lru     *lru.Cache[grid.Coord, []byte]
	metrics *metrics.Metrics
}

// New returns a cache holding up to size blocks, or nil when size is not
// positive.
func New(size int, m *metrics.Metrics) *Cache {
	if size <= 0 {
		return nil
	}
	c := &Cache{metrics: m}
	l, err := lru.NewWithEvict(size, c.onEvicted)
	if err != nil {
		// only returned for size < 1
		panic(err)
	}
	c.lru = l
	return c
}

// Get returns the block stored for coord.
func (c *Cache) Get(coord grid.Coord) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, ok := c.lru.Get(coord)
	if ok {
		c.metrics.CacheHit()
	} else {
		c.metrics.CacheMiss()
	}
	return data, ok
}

// Add stores a decoded block.
func (c *Cache) Add(coord grid.Coord, data []byte) {
	if c == nil {
		return
	}
	c.lru.Add(coord, data)
}

// Len returns the number of cached blocks.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *Cache) onEvicted(grid.Coord, []byte) {
	c.metrics.CacheEvicted()
}
