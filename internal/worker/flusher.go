package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
)

// CounterStore is the Redis side of hot-path counters.
type CounterStore interface {
	Drain(ctx context.Context, key string) (map[int64]int64, error)
	Restore(ctx context.Context, key string, counts map[int64]int64) error
}

type AdCounterSink interface {
	AddCounters(ctx context.Context, impressions, clicks map[int64]int64) error
}

type ViewSink interface {
	AddEventViews(ctx context.Context, views []domain.DailyViews) error
}

// Flusher moves ad impressions, ad clicks and event views from Redis into
// PostgreSQL. Counts that cannot be persisted are put back for the next run.
type Flusher struct {
	counters CounterStore
	ads      AdCounterSink
	views    ViewSink
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewFlusher(counters CounterStore, ads AdCounterSink, views ViewSink, interval time.Duration, logger *slog.Logger) *Flusher {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Flusher{
		counters: counters,
		ads:      ads,
		views:    views,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (f *Flusher) Run(ctx context.Context) error {
	return runEvery(ctx, "analytics_flusher", f.interval, f.logger, f.Flush)
}

// Flush performs one pass. Ads and views are flushed independently; the
// errors of both are joined.
func (f *Flusher) Flush(ctx context.Context) error {
	const op = "worker.Flusher.Flush"

	err := errors.Join(f.flushAds(ctx), f.flushViews(ctx))
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (f *Flusher) flushAds(ctx context.Context) error {
	impressions, err := f.counters.Drain(ctx, redisrepo.KeyAdImpressions())
	if err != nil {
		return err
	}

	clicks, err := f.counters.Drain(ctx, redisrepo.KeyAdClicks())
	if err != nil {
		return errors.Join(err, f.counters.Restore(ctx, redisrepo.KeyAdImpressions(), impressions))
	}

	if len(impressions) == 0 && len(clicks) == 0 {
		return nil
	}

	if err := f.ads.AddCounters(ctx, impressions, clicks); err != nil {
		return errors.Join(
			err,
			f.counters.Restore(ctx, redisrepo.KeyAdImpressions(), impressions),
			f.counters.Restore(ctx, redisrepo.KeyAdClicks(), clicks),
		)
	}

	f.logger.Info("ad counters flushed", "flushed", len(impressions)+len(clicks))

	return nil
}

// flushViews drains the view hash of every day still inside
// redisrepo.CountersRetention, oldest first, so counts restored after a
// failed flush are retried until their key expires.
func (f *Flusher) flushViews(ctx context.Context) error {
	today := f.now().UTC().Truncate(24 * time.Hour)
	retained := int(redisrepo.CountersRetention / (24 * time.Hour))

	var errs []error
	for back := retained; back >= 0; back-- {
		day := today.AddDate(0, 0, -back)
		key := redisrepo.KeyEventViews(redisrepo.Day(day))

		counts, err := f.counters.Drain(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(counts) == 0 {
			continue
		}

		views := make([]domain.DailyViews, 0, len(counts))
		for eventID, n := range counts {
			views = append(views, domain.DailyViews{EventID: eventID, Day: day, Views: n})
		}

		if err := f.views.AddEventViews(ctx, views); err != nil {
			errs = append(errs, err, f.counters.Restore(ctx, key, counts))
			continue
		}

		f.logger.Info("event views flushed", "day", redisrepo.Day(day), "flushed", len(views))
	}

	return errors.Join(errs...)
}
