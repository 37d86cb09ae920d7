package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kirinyoku/eventhub/internal/metrics"
)

// Cache is a JSON read-through cache for catalog reads, vanity redirects
// and site settings.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateEvent drops every cached view derived from one event.
func (c *Cache) InvalidateEvent(ctx context.Context, eventID int64) error {
	return c.Del(
		ctx,
		KeyEvent(eventID),
		KeyEventTicketTypes(eventID),
		KeyEventAvailability(eventID),
	)
}

// lookup returns the raw bytes stored under key. A miss is (nil, false, nil).
func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	return b, true, nil
}

// GetOrSetJSON returns the cached value under key or loads, stores and
// returns it. Concurrent misses on one key share a single load; each caller
// decodes its own copy of the shared bytes. A cache read failure falls
// through to the loader and a failed write is ignored.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	const op = "redisrepo.GetOrSetJSON"
	var out T

	space := keyspace(key)

	b, ok, err := c.lookup(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(space, "error").Inc()
	case ok && json.Unmarshal(b, &out) == nil:
		metrics.CacheLookups.WithLabelValues(space, "hit").Inc()
		return out, nil
	default:
		metrics.CacheLookups.WithLabelValues(space, "miss").Inc()
	}

	shared, err, _ := c.sf.Do(key, func() (any, error) {
		if b, ok, err := c.lookup(ctx, key); err == nil && ok && json.Valid(b) {
			return b, nil
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		_ = c.rdb.Set(ctx, key, string(b), ttl).Err()

		return b, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	var v T
	if err := json.Unmarshal(shared.([]byte), &v); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: decode %s: %w", op, key, err)
	}

	return v, nil
}

// keyspace is the first segment after the namespace, e.g. "event".
func keyspace(key string) string {
	rest := strings.TrimPrefix(key, ns+":")
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[:i]
	}
	return rest
}
