package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
)

// TieredCache keeps hot entries in memory in front of a shared cache.
// Errors from the shared tier degrade to a miss.
type TieredCache struct {
	memory    *MemoryCache
	shared    domain.MatchCache
	memoryTTL time.Duration
	logger    *logrus.Logger
}

// NewTieredCache layers memory over shared. memoryTTL bounds how long a
// response stays hot locally.
func NewTieredCache(memory *MemoryCache, shared domain.MatchCache, memoryTTL time.Duration, logger *logrus.Logger) *TieredCache {
	return &TieredCache{
		memory:    memory,
		shared:    shared,
		memoryTTL: memoryTTL,
		logger:    logger,
	}
}

// Get checks memory first and back-fills it from the shared tier.
func (c *TieredCache) Get(ctx context.Context, key string) (*domain.MatchResponse, bool, error) {
	if resp, ok, _ := c.memory.Get(ctx, key); ok {
		c.logger.WithFields(logrus.Fields{"key": key, "cache_tier": "memory"}).Debug("Match cache hit")
		return resp, true, nil
	}

	resp, ok, err := c.shared.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).Warn("Shared match cache unavailable, treating as miss")
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}

	c.logger.WithFields(logrus.Fields{"key": key, "cache_tier": "shared"}).Debug("Match cache hit")
	_ = c.memory.Set(ctx, key, resp, c.memoryTTL)
	return resp, true, nil
}

// Set writes both tiers. Only the shared tier can fail.
func (c *TieredCache) Set(ctx context.Context, key string, resp *domain.MatchResponse, ttl time.Duration) error {
	memTTL := c.memoryTTL
	if ttl > 0 && (memTTL <= 0 || ttl < memTTL) {
		memTTL = ttl
	}
	if err := c.memory.Set(ctx, key, resp, memTTL); err != nil {
		return err
	}
	return c.shared.Set(ctx, key, resp, ttl)
}

// Stats sums both tiers; Size is the memory tier's.
func (c *TieredCache) Stats() domain.CacheStats {
	mem := c.memory.Stats()
	shared := c.shared.Stats()
	return domain.CacheStats{
		Hits:   mem.Hits + shared.Hits,
		Misses: shared.Misses,
		Size:   mem.Size,
	}
}
