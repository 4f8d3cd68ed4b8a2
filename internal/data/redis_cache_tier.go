package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorhub/jobcore/internal/domain/model"
)

// DefaultCacheKeyPrefix namespaces TTL cache keys in Redis.
const DefaultCacheKeyPrefix = "jobcore:cache"

const redisScanCount = 500

// RedisCacheTier implements core.CacheTier using Redis.
// Keys are laid out as <prefix>:<category>:<key>.
type RedisCacheTier struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCacheTier creates a RedisCacheTier. An empty prefix uses DefaultCacheKeyPrefix.
func NewRedisCacheTier(client redis.UniversalClient, prefix string) *RedisCacheTier {
	if prefix == "" {
		prefix = DefaultCacheKeyPrefix
	}
	return &RedisCacheTier{client: client, prefix: prefix}
}

func (r *RedisCacheTier) redisKey(category model.CacheCategory, key string) string {
	return r.prefix + ":" + string(category) + ":" + key
}

// Set stores a value with the given TTL. A TTL <= 0 stores without expiry.
func (r *RedisCacheTier) Set(
	ctx context.Context,
	category model.CacheCategory,
	key string,
	value []byte,
	ttl time.Duration,
) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.redisKey(category, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get retrieves a value from Redis, returning nil when the key doesn't exist.
func (r *RedisCacheTier) Get(ctx context.Context, category model.CacheCategory, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, r.redisKey(category, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return result, nil
}

// Delete removes a single key.
func (r *RedisCacheTier) Delete(ctx context.Context, category model.CacheCategory, key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if err := r.client.Del(ctx, r.redisKey(category, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeletePattern SCANs the category for keys matching the glob and deletes them in pages.
func (r *RedisCacheTier) DeletePattern(ctx context.Context, category model.CacheCategory, pattern string) (int64, error) {
	if pattern == "" {
		return 0, errors.New("pattern cannot be empty")
	}

	match := r.redisKey(category, "") + globToRedisMatch(pattern)
	var deleted int64
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, redisScanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// Health checks the health of the Redis connection.
func (r *RedisCacheTier) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// RedisConfig holds configuration for Redis connection.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
	}
}

// NewRedisClient creates a new Redis client with the given configuration.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
