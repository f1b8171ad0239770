package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/trialscout-server/internal/domain"
)

const defaultMaxItems = 1000

type memoryEntry struct {
	response  domain.MatchResponse
	expiresAt time.Time
}

func (e *memoryEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is a bounded in-process LRU with per-entry expiry.
type MemoryCache struct {
	entries    *lru.Cache[string, *memoryEntry]
	defaultTTL time.Duration
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates an in-process cache holding at most maxItems
// responses.
func NewMemoryCache(maxItems int, defaultTTL time.Duration) (*MemoryCache, error) {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	entries, err := lru.New[string, *memoryEntry](maxItems)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	return &MemoryCache{
		entries:    entries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// Get returns a copy of the cached response.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.MatchResponse, bool, error) {
	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	if entry.isExpired(c.now()) {
		c.entries.Remove(key)
		c.misses.Add(1)
		return nil, false, nil
	}

	c.hits.Add(1)
	resp := entry.response
	return &resp, true, nil
}

// Set stores a copy of resp. A zero ttl uses the cache default; if that is
// also zero the entry lives until evicted.
func (c *MemoryCache) Set(_ context.Context, key string, resp *domain.MatchResponse, ttl time.Duration) error {
	if resp == nil {
		return fmt.Errorf("caching nil response for %s", key)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	entry := &memoryEntry{response: *resp}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries.Add(key, entry)
	return nil
}

// Stats reports hit and miss counters.
func (c *MemoryCache) Stats() domain.CacheStats {
	return domain.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.entries.Len(),
	}
}
