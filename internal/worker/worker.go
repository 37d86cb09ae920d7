// Package worker runs the periodic background jobs: releasing expired holds
// and flushing Redis counters into PostgreSQL.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirinyoku/eventhub/internal/metrics"
)

// runEvery calls fn immediately and then on every tick until ctx is done.
func runEvery(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, fn func(ctx context.Context) error) error {
	logger.Info("worker started", "worker", name, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.WorkerRuns.WithLabelValues(name, "error").Inc()
			logger.Error("worker run failed", "worker", name, "error", err)
		} else {
			metrics.WorkerRuns.WithLabelValues(name, "ok").Inc()
		}

		select {
		case <-ctx.Done():
			logger.Info("worker stopped", "worker", name)
			return nil
		case <-ticker.C:
		}
	}
}
