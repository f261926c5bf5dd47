package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
	redisclient "github.com/zatekoja/opticalqc/internal/infrastructure/clients/redis"
)

// RedisAdapter is a CacheProvider backed by Redis strings. All keys live under
// a common prefix so several services can share one database.
type RedisAdapter struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisAdapter(client *redisclient.Client, prefix string) *RedisAdapter {
	return &RedisAdapter{rdb: client.Client(), prefix: prefix}
}

func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := a.rdb.Get(ctx, a.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	case err != nil:
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value for ttlSeconds. A non-positive ttl keeps the key until it
// is deleted.
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := time.Duration(max(ttlSeconds, 0)) * time.Second
	if err := a.rdb.Set(ctx, a.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (a *RedisAdapter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = a.prefix + k
	}
	if err := a.rdb.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
