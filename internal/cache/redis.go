// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/plutosync/internal/metrics"
)

// KeyPrefix namespaces every key written to Redis.
const KeyPrefix = "plutosync:"

const opTimeout = 2 * time.Second

// RedisCache is a Redis-backed Cache.
type RedisCache struct {
	client *redis.Client
	logger zerolog.Logger
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // host:port
	Password string
	DB       int
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, config RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis cache")
	return newRedisCache(client, logger), nil
}

func newRedisCache(client *redis.Client, logger zerolog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.misses.Add(1)
		metrics.RecordCacheLookup("redis", "miss")
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		c.stats.misses.Add(1)
		metrics.RecordCacheLookup("redis", "error")
		return nil, false
	}
	c.stats.hits.Add(1)
	metrics.RecordCacheLookup("redis", "hit")
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, KeyPrefix+key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
		return
	}
	c.stats.sets.Add(1)
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, KeyPrefix+key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

// Stats returns the counters of this process and the number of keys under
// KeyPrefix.
func (c *RedisCache) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	size := 0
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		size++
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis scan failed")
	}
	return Stats{
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		Sets:        c.stats.sets.Load(),
		CurrentSize: size,
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// HealthCheck checks if Redis is available.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
