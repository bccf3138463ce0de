// Package cache memoizes read-only report queries in Redis.
//
// Entries are namespaced by a version counter. Any stock mutation bumps the
// counter, which orphans every older entry until its TTL expires, so no key
// scan or FLUSHDB is needed to invalidate.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const versionKey = "reports:version"

// InitRedis connects to Redis and verifies the connection with PING.
func InitRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// Cache is safe to use as a nil pointer, in which case every lookup misses
// and every write is dropped.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New wraps client. A nil client yields a nil *Cache.
func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Ping reports whether Redis is reachable. A nil cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Invalidate orphans every cached report.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", zap.Error(err))
	}
}

func (c *Cache) version(ctx context.Context) (string, error) {
	v, err := c.client.Get(ctx, versionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

// versionedKey namespaces key under the current report version.
func versionedKey(version, key string) string {
	return "reports:v" + version + ":" + key
}

// Remember returns the cached value for key, or calls load and caches its
// result. Redis failures degrade to calling load directly.
func Remember[T any](ctx context.Context, c *Cache, key string, load func() (T, error)) (T, error) {
	if c == nil {
		return load()
	}

	ver, err := c.version(ctx)
	if err != nil {
		c.logger.Warn("cache version lookup failed", zap.Error(err))
		return load()
	}
	full := versionedKey(ver, key)

	if raw, err := c.client.Get(ctx, full).Bytes(); err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.logger.Warn("cache entry undecodable", zap.String("key", full))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache get failed", zap.String("key", full), zap.Error(err))
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := c.client.Set(ctx, full, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("cache set failed", zap.String("key", full), zap.Error(err))
		}
	}
	return v, nil
}
