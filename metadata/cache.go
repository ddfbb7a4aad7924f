package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Cache stores successful lookups. Implementations swallow their own errors:
// a broken cache degrades to a miss.
type Cache interface {
	Get(ctx context.Context, key string) (Details, bool)
	Set(ctx context.Context, key string, details Details, ttl time.Duration)
}

type RedisCache struct {
	client *redis.Client
	logger *log.Entry
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	// callers bound cache calls with their own deadline
	opts.ContextTimeoutEnabled = true
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = time.Second
	}
	return NewRedisCacheWithClient(redis.NewClient(opts)), nil
}

func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		logger: log.WithFields(log.Fields{"module": "metadata-cache"}),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Details, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnf("cache get %s failed: %v", key, err)
		}
		return Details{}, false
	}

	var details Details
	if err := json.Unmarshal(raw, &details); err != nil {
		c.logger.Warnf("cache entry %s is corrupt: %v", key, err)
		return Details{}, false
	}
	return details, true
}

func (c *RedisCache) Set(ctx context.Context, key string, details Details, ttl time.Duration) {
	raw, err := json.Marshal(details)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warnf("cache set %s failed: %v", key, err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
