package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
)

// cachedResponse is the JSON envelope stored in Redis.
type cachedResponse struct {
	Data      *domain.MatchResponse `json:"data"`
	CachedAt  time.Time             `json:"cached_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// RedisCache stores match responses in Redis.
type RedisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
	logger     *logrus.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, config domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, config.DefaultTTL, logger), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, defaultTTL time.Duration, logger *logrus.Logger) *RedisCache {
	return &RedisCache{
		redis:      client,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Get returns the cached response. Entries that fail to decode are deleted
// and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.MatchResponse, bool, error) {
	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading match cache: %w", err)
	}

	var entry cachedResponse
	if err := json.Unmarshal(val, &entry); err != nil || entry.Data == nil {
		c.logger.WithFields(logrus.Fields{
			"key":   key,
			"error": err,
		}).Warn("Discarding corrupt match cache entry")
		c.redis.Del(ctx, key)
		c.misses.Add(1)
		return nil, false, nil
	}

	c.hits.Add(1)
	return entry.Data, true, nil
}

// Set stores resp under key. A zero ttl uses the cache default.
func (c *RedisCache) Set(ctx context.Context, key string, resp *domain.MatchResponse, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := time.Now().UTC()
	entry := cachedResponse{Data: resp, CachedAt: now}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding match cache entry: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing match cache: %w", err)
	}
	return nil
}

// Stats reports hit and miss counters; Size is not tracked for Redis.
func (c *RedisCache) Stats() domain.CacheStats {
	return domain.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.redis.Close()
}
