package redisrepo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// luaDrainHash returns every field of a hash and deletes it atomically.
const luaDrainHash = `
local v = redis.call('HGETALL', KEYS[1])
redis.call('DEL', KEYS[1])
return v
`

// CountersRetention bounds how long undrained counters survive.
const CountersRetention = 7 * 24 * time.Hour

// Counters accumulates hot-path increments (ad impressions and clicks,
// event views) in Redis hashes until a flusher drains them.
type Counters struct {
	rdb   *redis.Client
	drain *redis.Script
}

func NewCounters(rdb *redis.Client) *Counters {
	return &Counters{rdb: rdb, drain: redis.NewScript(luaDrainHash)}
}

func (c *Counters) IncrAdImpression(ctx context.Context, adID int64) error {
	return c.incr(ctx, "redisrepo.Counters.IncrAdImpression", KeyAdImpressions(), adID)
}

func (c *Counters) IncrAdClick(ctx context.Context, adID int64) error {
	return c.incr(ctx, "redisrepo.Counters.IncrAdClick", KeyAdClicks(), adID)
}

// IncrEventView counts a view of an event on the UTC day of at.
func (c *Counters) IncrEventView(ctx context.Context, eventID int64, at time.Time) error {
	return c.incr(ctx, "redisrepo.Counters.IncrEventView", KeyEventViews(Day(at)), eventID)
}

func (c *Counters) incr(ctx context.Context, op, key string, id int64) error {
	pipe := c.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, strconv.FormatInt(id, 10), 1)
	pipe.Expire(ctx, key, CountersRetention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Drain atomically takes every count stored under key.
func (c *Counters) Drain(ctx context.Context, key string) (map[int64]int64, error) {
	const op = "redisrepo.Counters.Drain"

	res, err := c.drain.Run(ctx, c.rdb, []string{key}).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := make(map[int64]int64, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		id, err := strconv.ParseInt(res[i], 10, 64)
		if err != nil {
			continue
		}
		n, err := strconv.ParseInt(res[i+1], 10, 64)
		if err != nil {
			continue
		}
		out[id] = n
	}

	return out, nil
}

// Restore adds drained counts back, used when persisting them failed.
func (c *Counters) Restore(ctx context.Context, key string, counts map[int64]int64) error {
	const op = "redisrepo.Counters.Restore"

	if len(counts) == 0 {
		return nil
	}

	pipe := c.rdb.TxPipeline()
	for id, n := range counts {
		pipe.HIncrBy(ctx, key, strconv.FormatInt(id, 10), n)
	}
	pipe.Expire(ctx, key, CountersRetention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Day formats the UTC calendar day used in view keys.
func Day(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
