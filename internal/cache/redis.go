package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisClient is the subset of *redis.Client used by RedisBackend.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisBackend shares cached briefs between instances.
type RedisBackend struct {
	client RedisClient
	prefix string
}

// NewRedisBackend wraps client. Every key is prefixed with prefix.
func NewRedisBackend(client RedisClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// NewRedisFromURL parses a redis:// URL and connects lazily.
func NewRedisFromURL(url, prefix string) (*RedisBackend, *redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, eris.Wrap(err, "cache: parse redis url")
	}
	client := redis.NewClient(opt)
	return NewRedisBackend(client, prefix), client, nil
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: redis get")
	}
	return data, true, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return eris.Wrap(r.client.Set(ctx, r.prefix+key, val, ttl).Err(), "cache: redis set")
}
