// Package cache memoizes briefs for a short TTL. Concurrent requests for the
// same key share one population through singleflight, and only results the
// loader marks cacheable are stored.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/meetingintel/internal/metrics"
)

// DefaultTTL is how long a cached brief stays valid.
const DefaultTTL = 300 * time.Second

// Backend stores opaque values with a TTL.
type Backend interface {
	// Get returns ok=false on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Cache layers JSON encoding and single-flight population over a Backend.
type Cache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
}

// New creates a Cache. A non-positive ttl means DefaultTTL.
func New(backend Backend, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{backend: backend, ttl: ttl}
}

// Loader produces a value and reports whether it may be cached.
type Loader[T any] func(ctx context.Context) (val T, cacheable bool, err error)

// maxRejoins bounds how often a caller reruns a load that another
// caller's context ended.
const maxRejoins = 3

// Do returns the cached value for key or runs load. hit reports whether the
// value came from the backend. Backend failures degrade to a miss. Loader
// errors are never cached.
//
// A joined load runs under the leading caller's context. When that context
// ends, live joiners run the load again instead of inheriting the
// cancellation.
func Do[T any](ctx context.Context, c *Cache, key string, load Loader[T]) (val T, hit bool, err error) {
	if v, ok := lookup[T](ctx, c, key); ok {
		metrics.CacheTotal.WithLabelValues("hit").Inc()
		return v, true, nil
	}

	for rejoin := 0; ; rejoin++ {
		led := false
		res, err, shared := c.group.Do(key, func() (any, error) {
			led = true
			v, cacheable, err := load(ctx)
			if err != nil {
				return nil, err
			}
			if cacheable && ctx.Err() == nil {
				c.store(ctx, key, v)
			}
			return v, nil
		})
		if shared && !led {
			metrics.CacheTotal.WithLabelValues("shared").Inc()
		} else {
			metrics.CacheTotal.WithLabelValues("miss").Inc()
		}
		if err == nil {
			return res.(T), false, nil
		}
		if !led && ctx.Err() == nil && isContextErr(err) && rejoin < maxRejoins {
			zap.L().Debug("cache: shared load ended by another caller, rerunning", zap.String("key", key))
			continue
		}
		var zero T
		return zero, false, err
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		zap.L().Warn("cache: get failed", zap.String("key", key), zap.Error(err))
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		zap.L().Warn("cache: corrupt entry", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("cache: encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		zap.L().Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
}
