package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces all keys written to Redis.
const DefaultKeyPrefix = "shoptl:"

const scanBatch = 100

// RedisCache is a Redis-backed translation cache shared between runs and machines.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	timeout   time.Duration
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string        // Redis connection URL (e.g., "redis://localhost:6379/0")
	TTL       int           // TTL in seconds (0 = no expiration)
	KeyPrefix string        // Prefix for all keys (default: "shoptl:")
	Timeout   time.Duration // Per-operation timeout (default: 2s)
}

// NewRedisCache creates a new Redis cache with the given configuration.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	c := NewRedisCacheFromClient(redis.NewClient(opts), cfg.TTL, cfg.KeyPrefix)
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}

	// Test connection
	if err := c.Ping(); err != nil {
		c.client.Close()
		return nil, err
	}

	return c, nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing Redis client.
func NewRedisCacheFromClient(client *redis.Client, ttlSeconds int, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = 0
	}

	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
		timeout:   2 * time.Second,
	}
}

// Get retrieves a value from Redis. Errors are reported as misses.
func (c *RedisCache) Get(key string) (string, bool) {
	ctx, cancel := c.opContext()
	defer cancel()

	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a value in Redis.
func (c *RedisCache) Set(key string, value string) error {
	ctx, cancel := c.opContext()
	defer cancel()

	return c.client.Set(ctx, c.keyPrefix+key, value, c.ttl).Err()
}

// Snapshot returns every entry under the key prefix, without the prefix.
// Keys are read one SCAN batch at a time with MGET.
func (c *RedisCache) Snapshot() (map[string]string, error) {
	ctx := context.Background()
	result := make(map[string]string)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, err
		}

		if len(keys) > 0 {
			vals, err := c.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, err
			}
			for i, v := range vals {
				// nil means the key expired after SCAN saw it.
				if s, ok := v.(string); ok {
					result[strings.TrimPrefix(keys[i], c.keyPrefix)] = s
				}
			}
		}

		if next == 0 {
			return result, nil
		}
		cursor = next
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection.
func (c *RedisCache) Ping() error {
	ctx, cancel := c.opContext()
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

// Verify RedisCache implements Snapshotter
var _ Snapshotter = (*RedisCache)(nil)
