// Package cache provides the fingerprint-keyed, bounded, TTL-aware
// Decision cache sitting in front of the evaluator (§4.4). It is
// grounded on the donor's ResultCache (internal/service/policy_service.go):
// the doubly-linked-list LRU structure and single-mutex design carry
// over unchanged; the key changes from a 64-bit xxhash to a BLAKE3-256
// Fingerprint, and entries gain a TTL.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/llm-dev-ops/policy-engine/pkg/policy"
)

// DefaultMaxSize and DefaultTTL are used when Config leaves the
// corresponding field at its zero value.
const (
	DefaultMaxSize = 1000
	DefaultTTL     = 5 * time.Minute
)

// Config configures a Cache. A MaxSize of 0 or less falls back to
// DefaultMaxSize; a TTL of 0 falls back to DefaultTTL, and a negative
// TTL disables expiry (entries live until evicted for capacity or
// explicitly cleared).
type Config struct {
	MaxSize int
	TTL     time.Duration
}

// Cache is a concurrency-safe Decision cache keyed by Context
// fingerprint. Hit/miss counters are atomic so Stats can be read
// without taking the LRU mutex.
type Cache struct {
	mu   sync.Mutex
	lru  *lruList
	hits atomic.Uint64
	miss atomic.Uint64
}

// New returns a Cache configured per cfg.
func New(cfg Config) *Cache {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Cache{lru: newLRUList(maxSize, ttl)}
}

// Get looks up ctx's fingerprint. The returned Decision is a private
// clone; mutating it never affects the cached entry.
func (c *Cache) Get(ctx *policy.Context) (policy.Decision, bool, error) {
	key, err := ComputeFingerprint(ctx)
	if err != nil {
		return policy.Decision{}, false, err
	}

	c.mu.Lock()
	decision, ok := c.lru.get(key, time.Now())
	c.mu.Unlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.miss.Add(1)
	}
	return decision, ok, nil
}

// Put stores decision under ctx's fingerprint, cloning it on the way in.
func (c *Cache) Put(ctx *policy.Context, decision policy.Decision) error {
	key, err := ComputeFingerprint(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.lru.put(key, decision, time.Now())
	c.mu.Unlock()
	return nil
}

// Clear empties the cache. Called whenever the engine's policy set
// changes (§4.5): a stale cached Decision under an old policy set must
// never survive a load/unload.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.lru.clear()
	c.mu.Unlock()
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size    int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns the current cache statistics. HitRate is expressed as a
// percentage in [0, 100]; it is 0 when no lookups have occurred yet.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.miss.Load()

	c.mu.Lock()
	size := c.lru.size()
	c.mu.Unlock()

	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	return Stats{Size: size, Hits: hits, Misses: misses, HitRate: rate}
}
