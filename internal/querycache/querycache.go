// Package querycache caches ranked search results keyed by the query text
// and its options, so repeated identical searches skip lexical/vector
// retrieval and fusion entirely. Any write to the store invalidates every
// entry in one step via a global epoch rather than enumerating keys.
package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"

	"github.com/matperez/coderag/internal/retrieve"
)

// entry is the cached value plus the epoch it was produced under. A read
// whose stored epoch no longer matches the cache's current epoch is a miss,
// even though otter itself hasn't evicted it yet.
type entry struct {
	hits  []retrieve.Hit
	epoch uint64
}

// Metrics is a read-only snapshot of cache effectiveness, mirroring the
// teacher's MetricsSnapshot pattern.
type Metrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is an LRU with per-entry TTL over ranked search results. The zero
// value is not usable; construct with New.
type Cache struct {
	store otter.Cache[string, entry]
	ttl   time.Duration
	epoch atomic.Uint64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New builds a Cache holding up to capacity entries, each living for ttl
// unless invalidated sooner by Invalidate.
func New(capacity int, ttl time.Duration) (*Cache, error) {
	c := &Cache{ttl: ttl}
	store, err := otter.MustBuilder[string, entry](capacity).
		WithTTL(ttl).
		DeletionListener(func(key string, value entry, cause otter.DeletionCause) {
			if cause == otter.Size || cause == otter.Expired {
				c.evictions.Add(1)
			}
		}).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("querycache: build: %w", err)
	}
	c.store = store
	return c, nil
}

// Key derives the cache key for a query and its resolved options. Fields
// are serialized explicitly rather than via a generic encoder, and the
// slice fields are sorted first, so the same extensions or exclude
// patterns in a different order hash the same. Values are hashed as
// given: a zero field and its explicit default produce different keys.
func Key(query string, opts retrieve.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s\n", query)
	fmt.Fprintf(h, "limit=%d\n", opts.Limit)
	fmt.Fprintf(h, "content=%t\n", opts.IncludeContent)
	fmt.Fprintf(h, "ctx=%d\n", opts.ContextLines)
	fmt.Fprintf(h, "maxchars=%d\n", opts.MaxSnippetChars)
	fmt.Fprintf(h, "maxblocks=%d\n", opts.MaxSnippetBlocks)
	fmt.Fprintf(h, "weight=%f\n", opts.VectorWeight)
	fmt.Fprintf(h, "pathfilter=%s\n", opts.PathFilter)

	ext := append([]string(nil), opts.FileExtensions...)
	sort.Strings(ext)
	fmt.Fprintf(h, "ext=%v\n", ext)

	excl := append([]string(nil), opts.ExcludePaths...)
	sort.Strings(excl)
	fmt.Fprintf(h, "excl=%v\n", excl)

	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached hits for key, or false if absent, expired, or
// invalidated since it was written.
func (c *Cache) Get(key string) ([]retrieve.Hit, bool) {
	v, ok := c.store.Get(key)
	if !ok || v.epoch != c.epoch.Load() {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return v.hits, true
}

// Set stores hits under key, tagged with the cache's current epoch.
func (c *Cache) Set(key string, hits []retrieve.Hit) {
	c.store.Set(key, entry{hits: hits, epoch: c.epoch.Load()})
}

// Invalidate implements engine.CacheInvalidator: it bumps the global epoch
// so every previously cached entry becomes unreadable, without a scan.
func (c *Cache) Invalidate() {
	c.epoch.Add(1)
}

// GetMetrics returns an immutable snapshot of cache effectiveness.
func (c *Cache) GetMetrics() Metrics {
	return Metrics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Close releases background resources held by the underlying cache.
func (c *Cache) Close() {
	c.store.Close()
}
