package retrieve

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto"
)

// Cache memoizes retrieval results per store generation. Mutations bump
// the generation, so stale results simply stop being addressable; access
// bookkeeping alone does not invalidate.
type Cache struct {
	inner *ristretto.Cache
}

// NewCache creates a retrieval cache sized for a desktop session.
func NewCache() (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000, // ~10x expected live entries
		MaxCost:     1 << 22, // 4 MiB of rendered results
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Key builds the cache key for one retrieval.
func Key(generation uint64, agentID, query string, opts Options) string {
	return fmt.Sprintf("%d|%s|%s|%d|%s",
		generation, agentID, strings.ToLower(strings.TrimSpace(query)),
		opts.MaxTokens, strings.Join(opts.FilePaths, ","))
}

// Get returns a cached result.
func (c *Cache) Get(key string) (Result, bool) {
	v, ok := c.inner.Get(key)
	if !ok {
		return Result{}, false
	}
	res, ok := v.(Result)
	return res, ok
}

// Set stores a result, costed by its entry count.
func (c *Cache) Set(key string, res Result) {
	cost := int64(1)
	for _, e := range res.Pinned {
		cost += int64(len(e.Content))
	}
	for _, s := range res.Entries {
		cost += int64(len(s.Entry.Content))
	}
	c.inner.Set(key, res, cost)
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.inner.Close()
}
