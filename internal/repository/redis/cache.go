package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a JSON read-through cache that collapses concurrent loads of the
// same key.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func getJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}

	if err := json.Unmarshal(b, &out); err != nil {
		// A payload written by an older build is treated as a miss.
		return out, false, nil
	}

	return out, true, nil
}

func setJSON(ctx context.Context, c *Cache, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// GetOrSetJSON returns the cached value of key, or loads, stores and returns
// it. Concurrent misses of one key share a single load. A failing store is
// ignored: the loaded value is still returned.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := getJSON[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok, err := getJSON[T](ctx, c, key); err != nil || ok {
			return v, err
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		_ = setJSON(ctx, c, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: unexpected value type %T for %s", vAny, key)
	}

	return v, nil
}

// DateVersion returns the current cache generation of a travel date.
func (c *Cache) DateVersion(ctx context.Context, date time.Time) (int64, error) {
	v, err := c.rdb.Get(ctx, KeyDateVersion(date)).Int64()
	if err == redis.Nil {
		return 0, nil
	}

	return v, err
}

// InvalidateDate starts a new cache generation for a travel date. Entries of
// older generations expire on their own TTL.
func (c *Cache) InvalidateDate(ctx context.Context, date time.Time) error {
	key := KeyDateVersion(date)

	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 7*24*time.Hour)
	_, err := pipe.Exec(ctx)

	return err
}
