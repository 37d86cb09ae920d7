// Package analytics records event page views and builds the sales and
// network growth reports.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
)

var ErrEventNotFound = errors.New("event not found")

const (
	defaultWindow = 30 * 24 * time.Hour
	maxWindow     = 366 * 24 * time.Hour
	defaultTop    = 10
	maxTop        = 100
)

type Service struct {
	store    *postgresrepo.Store
	counters *redisrepo.Counters
	now      func() time.Time
}

func New(store *postgresrepo.Store, counters *redisrepo.Counters) *Service {
	return &Service{store: store, counters: counters, now: time.Now}
}

// RecordEventView counts one view of an event page. Views reach
// PostgreSQL when the flusher drains the counters.
func (s *Service) RecordEventView(ctx context.Context, eventID int64) error {
	const op = "service.analytics.RecordEventView"

	if err := s.counters.IncrEventView(ctx, eventID, s.now()); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// EventReport summarizes views, sales and check-ins of an event.
//
// Returns:
//   - error: analytics.ErrEventNotFound if the event does not exist.
func (s *Service) EventReport(ctx context.Context, eventID int64) (*domain.EventReport, error) {
	const op = "service.analytics.EventReport"

	rep, err := s.store.Analytics().EventReport(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return rep, nil
}

// NetworkGrowth reports signups, referrals and the viral coefficient for
// [from, to). Zero bounds default to the last 30 days.
func (s *Service) NetworkGrowth(ctx context.Context, from, to time.Time, top int) (*domain.NetworkGrowth, error) {
	const op = "service.analytics.NetworkGrowth"

	from, to, err := s.window(from, to)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	g, err := s.store.Analytics().NetworkGrowth(ctx, from, to, domain.ClampLimit(top, defaultTop, maxTop))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return g, nil
}

func (s *Service) window(from, to time.Time) (time.Time, time.Time, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-defaultWindow)
	}

	switch {
	case !to.After(from):
		return from, to, domain.Invalid("to", "must be after from")
	case to.Sub(from) > maxWindow:
		return from, to, domain.Invalid("from", "window is longer than a year")
	}

	return from.UTC(), to.UTC(), nil
}
