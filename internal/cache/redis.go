package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "friendly:username:"

// RedisCache shares id to username mappings between instances through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and verifies the server responds.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisCache wraps client with entries expiring after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

// GetMany fetches the cached usernames among ids with a single MGET.
func (c *RedisCache) GetMany(ctx context.Context, ids []string) (map[string]string, error) {
	if c == nil || c.client == nil {
		return nil, ErrUnavailable
	}
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKeyPrefix + id
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, value := range values {
		if username, ok := value.(string); ok {
			out[ids[i]] = username
		}
	}
	return out, nil
}

// SetMany writes the provided usernames in one pipeline.
func (c *RedisCache) SetMany(ctx context.Context, names map[string]string) error {
	if c == nil || c.client == nil {
		return ErrUnavailable
	}
	if len(names) == 0 {
		return nil
	}

	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, username := range names {
			pipe.Set(ctx, redisKeyPrefix+id, username, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline set: %w", err)
	}
	return nil
}
