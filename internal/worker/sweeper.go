package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// HoldExpirer releases expired holds and reports the released units.
type HoldExpirer interface {
	ExpireHolds(ctx context.Context) (int64, error)
}

// Sweeper periodically returns the units of expired holds to sale.
type Sweeper struct {
	holds    HoldExpirer
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(holds HoldExpirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	return &Sweeper{
		holds:    holds,
		interval: interval,
		logger:   logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	return runEvery(ctx, "hold_sweeper", s.interval, s.logger, s.Sweep)
}

// Sweep performs one pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	const op = "worker.Sweeper.Sweep"

	released, err := s.holds.ExpireHolds(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if released > 0 {
		s.logger.Info("expired holds released", "released", released)
	}

	return nil
}
