package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/metrics"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/service/eventsync"
	"github.com/kirinyoku/eventhub/internal/uow"
)

// sweepBatch is the number of expired holds released per transaction.
const sweepBatch = 500

type Config struct {
	DefaultHoldTTL time.Duration
	MinHoldTTL     time.Duration
	MaxHoldTTL     time.Duration
}

// Limiter throttles hold creation per client.
type Limiter interface {
	Allow(ctx context.Context, subject string) (redisrepo.Decision, error)
}

type Service struct {
	store   *postgresrepo.Store
	events  *eventsync.Notifier
	limiter Limiter
	uow     *uow.UoW
	cfg     Config
	now     func() time.Time
}

func New(
	store *postgresrepo.Store,
	events *eventsync.Notifier,
	limiter Limiter,
	cfg Config,
) *Service {
	if cfg.MinHoldTTL <= 0 {
		cfg.MinHoldTTL = time.Minute
	}

	if cfg.MaxHoldTTL <= 0 || cfg.MaxHoldTTL < cfg.MinHoldTTL {
		cfg.MaxHoldTTL = 15 * time.Minute
	}

	if cfg.DefaultHoldTTL <= 0 {
		cfg.DefaultHoldTTL = 10 * time.Minute
	}

	return &Service{
		store:   store,
		events:  events,
		limiter: limiter,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
		now:     time.Now,
	}
}

// CreateHold reserves ticket units of a published event for userID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: ID of the user creating the hold.
//   - eventID: ID of the event the tickets are for.
//   - items: ticket types and quantities; repeated types are merged.
//   - ttl: requested lifetime, clamped to the configured bounds; zero
//     means the default.
//   - rlKey: rate limit subject, usually the client IP.
//
// Returns:
//   - *domain.Hold: the created hold.
//   - error: *domain.RateLimitedError if the client is over its allowance.
//   - error: inventory.ErrEventNotFound if the event is not published.
//   - error: inventory.ErrTicketsUnavailable if any item cannot be held;
//     nothing is reserved in that case.
func (s *Service) CreateHold(
	ctx context.Context,
	userID, eventID int64,
	items []domain.HoldItem,
	ttl time.Duration,
	rlKey string,
) (*domain.Hold, error) {
	const op = "service.inventory.CreateHold"

	if len(items) == 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("items", "must not be empty"))
	}

	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%s:%w", op, domain.Invalid("quantity", "must be at least 1"))
		}
		if it.TicketTypeID <= 0 {
			return nil, fmt.Errorf("%s:%w", op, domain.Invalid("ticket_type_id", "is required"))
		}
	}

	if s.limiter != nil && rlKey != "" {
		d, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !d.Allowed {
			return nil, fmt.Errorf("%s:%w", op, &domain.RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	hold := domain.Hold{
		ID:        uuid.New(),
		EventID:   eventID,
		UserID:    userID,
		Items:     domain.MergeHoldItems(items),
		ExpiresAt: s.now().Add(s.clampTTL(ttl)),
	}

	err := s.uow.DoLocked(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		e, err := s.store.Catalog().With(tx).GetEvent(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		if e.Status != domain.StatusPublished {
			return ErrEventNotFound
		}

		if err := s.store.Inventory().With(tx).CreateHold(ctx, hold); err != nil {
			switch {
			case errors.Is(err, repository.ErrTicketsUnavailable):
				return ErrTicketsUnavailable
			case errors.Is(err, repository.ErrReferenceMissing):
				return ErrEventNotFound
			}
			return err
		}

		after(s.events.Changed(eventID, "hold_created"))

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTicketsUnavailable) {
			metrics.Holds.WithLabelValues(metrics.HoldRejected).Inc()
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.Holds.WithLabelValues(metrics.HoldCreated).Inc()
	metrics.HeldUnits.Add(float64(hold.TotalQuantity()))

	hold.CreatedAt = s.now()

	return &hold, nil
}

// GetHold returns a hold owned by userID.
//
// Returns:
//   - error: inventory.ErrHoldNotFound if the hold does not exist or
//     belongs to someone else.
//   - error: inventory.ErrHoldExpired if the hold is past its expiry.
func (s *Service) GetHold(ctx context.Context, userID int64, id uuid.UUID) (*domain.Hold, error) {
	const op = "service.inventory.GetHold"

	h, err := s.store.Inventory().GetHold(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrHoldNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if h.UserID != userID {
		return nil, fmt.Errorf("%s:%w", op, ErrHoldNotFound)
	}

	if !h.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%s:%w", op, ErrHoldExpired)
	}

	return h, nil
}

// ListHolds lists the unexpired holds of userID.
func (s *Service) ListHolds(ctx context.Context, userID int64) ([]domain.Hold, error) {
	const op = "service.inventory.ListHolds"

	out, err := s.store.Inventory().ListUserHolds(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// CancelHold releases a hold owned by userID.
//
// Returns:
//   - error: inventory.ErrHoldNotFound if the hold does not exist or
//     belongs to someone else.
func (s *Service) CancelHold(ctx context.Context, userID int64, id uuid.UUID) error {
	const op = "service.inventory.CancelHold"

	var units int
	err := s.uow.DoLocked(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Inventory().With(tx)

		h, err := repo.LockHold(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrHoldNotFound
			}
			return err
		}

		if h.UserID != userID {
			return ErrHoldNotFound
		}

		if err := repo.ReleaseHold(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrHoldNotFound
			}
			return err
		}

		units = h.TotalQuantity()
		after(s.events.Changed(h.EventID, "hold_cancelled"))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	metrics.Holds.WithLabelValues(metrics.HoldCancelled).Inc()
	metrics.ReleasedUnits.Add(float64(units))

	return nil
}

// ExpireHolds releases every expired hold, batch by batch, skipping holds
// locked by a concurrent checkout.
//
// Returns:
//   - int64: the number of released ticket units.
func (s *Service) ExpireHolds(ctx context.Context) (int64, error) {
	const op = "service.inventory.ExpireHolds"

	var total int64
	for {
		var (
			holds  int
			units  int64
			events []int64
		)

		err := s.uow.DoLocked(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
			var err error
			holds, units, events, err = s.store.Inventory().With(tx).ExpireHolds(ctx, sweepBatch)
			if err != nil {
				return err
			}

			for _, eventID := range events {
				after(s.events.Changed(eventID, "hold_expired"))
			}

			return nil
		})
		if err != nil {
			return total, fmt.Errorf("%s:%w", op, err)
		}

		total += units
		metrics.Holds.WithLabelValues(metrics.HoldExpired).Add(float64(holds))
		metrics.ReleasedUnits.Add(float64(units))

		if holds == 0 {
			return total, nil
		}
	}
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = s.cfg.DefaultHoldTTL
	}

	if ttl < s.cfg.MinHoldTTL {
		return s.cfg.MinHoldTTL
	}

	if ttl > s.cfg.MaxHoldTTL {
		return s.cfg.MaxHoldTTL
	}

	return ttl
}
