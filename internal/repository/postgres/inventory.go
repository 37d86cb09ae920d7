package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
)

type InventoryRepo struct {
	conn
}

func (r *InventoryRepo) With(db DB) *InventoryRepo {
	return &InventoryRepo{r.conn.with(db)}
}

// CreateHold reserves the hold's items against ticket type counters.
// Expired holds of the same event are released first so that their units
// count as available.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - h: the hold to create; Items must be merged and sorted by ticket type.
//
// Returns:
//   - error: repository.ErrTicketsUnavailable if any item cannot be held.
//   - error: repository.ErrReferenceMissing if the event or user is gone.
func (r *InventoryRepo) CreateHold(ctx context.Context, h domain.Hold) error {
	const op = "postgresrepo.InventoryRepo.CreateHold"

	err := r.inLockedTx(ctx, func(db DB) error {
		if _, _, _, err := r.releaseExpired(ctx, db, &h.EventID, 0); err != nil {
			return err
		}

		if _, err := db.Exec(ctx,
			`INSERT INTO holds(id, event_id, user_id, expires_at)
			 VALUES ($1, $2, $3, $4)`,
			h.ID, h.EventID, h.UserID, h.ExpiresAt,
		); err != nil {
			return translateDBErr(err)
		}

		for _, it := range h.Items {
			tag, err := db.Exec(ctx,
				`UPDATE ticket_types
				 SET held = held + $3
				 WHERE id = $1
				   AND event_id = $2
				   AND status = 'active'
				   AND (sales_start IS NULL OR sales_start <= now())
				   AND (sales_end IS NULL OR sales_end > now())
				   AND $3 <= max_per_order
				   AND capacity - sold - held >= $3`,
				it.TicketTypeID, h.EventID, it.Quantity,
			)
			if err != nil {
				return translateDBErr(err)
			}

			if tag.RowsAffected() == 0 {
				return repository.ErrTicketsUnavailable
			}
		}

		batch := &pgx.Batch{}
		for _, it := range h.Items {
			batch.Queue(
				`INSERT INTO hold_items(hold_id, ticket_type_id, quantity)
				 VALUES ($1, $2, $3)`,
				h.ID, it.TicketTypeID, it.Quantity,
			)
		}
		if err := db.SendBatch(ctx, batch).Close(); err != nil {
			return translateDBErr(err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// GetHold retrieves a hold with its items.
//
// Returns:
//   - error: repository.ErrNotFound if the hold does not exist.
func (r *InventoryRepo) GetHold(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	const op = "postgresrepo.InventoryRepo.GetHold"

	h, err := r.loadHold(ctx, r.handle(), id, false)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return h, nil
}

// LockHold is GetHold with a row lock on the hold; use it inside a unit of work.
func (r *InventoryRepo) LockHold(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	const op = "postgresrepo.InventoryRepo.LockHold"

	h, err := r.loadHold(ctx, r.handle(), id, true)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return h, nil
}

func (r *InventoryRepo) loadHold(ctx context.Context, db DB, id uuid.UUID, lock bool) (*domain.Hold, error) {
	sql := `SELECT id, event_id, user_id, expires_at, created_at FROM holds WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}

	var h domain.Hold
	if err := db.QueryRow(ctx, sql, id).Scan(
		&h.ID,
		&h.EventID,
		&h.UserID,
		&h.ExpiresAt,
		&h.CreatedAt,
	); err != nil {
		return nil, translateDBErr(err)
	}

	rows, err := db.Query(ctx,
		`SELECT ticket_type_id, quantity
		 FROM hold_items
		 WHERE hold_id = $1
		 ORDER BY ticket_type_id`,
		id,
	)
	if err != nil {
		return nil, translateDBErr(err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HoldItem, error) {
		var it domain.HoldItem
		err := row.Scan(&it.TicketTypeID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, translateDBErr(err)
	}
	h.Items = items

	return &h, nil
}

// ListUserHolds lists the unexpired holds of a user.
func (r *InventoryRepo) ListUserHolds(ctx context.Context, userID int64) ([]domain.Hold, error) {
	const op = "postgresrepo.InventoryRepo.ListUserHolds"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id
		 FROM holds
		 WHERE user_id = $1 AND expires_at > now()
		 ORDER BY expires_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out := make([]domain.Hold, 0, len(ids))
	for _, id := range ids {
		h, err := r.loadHold(ctx, db, id, false)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		out = append(out, *h)
	}

	return out, nil
}

// ReleaseHold returns a hold's units to its ticket types and deletes it.
//
// Returns:
//   - error: repository.ErrNotFound if the hold does not exist.
func (r *InventoryRepo) ReleaseHold(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.InventoryRepo.ReleaseHold"

	err := r.inLockedTx(ctx, func(db DB) error {
		_, events, err := r.release(ctx, db, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ExpireHolds releases up to limit expired holds. Holds locked by a
// concurrent checkout are skipped.
//
// Returns:
//   - int: the number of released holds.
//   - int64: the number of released ticket units.
//   - []int64: distinct IDs of the events whose availability changed.
func (r *InventoryRepo) ExpireHolds(ctx context.Context, limit int) (int, int64, []int64, error) {
	const op = "postgresrepo.InventoryRepo.ExpireHolds"

	var (
		holds  int
		units  int64
		events []int64
	)
	err := r.inLockedTx(ctx, func(db DB) error {
		var err error
		holds, units, events, err = r.releaseExpired(ctx, db, nil, limit)
		return err
	})
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%s:%w", op, err)
	}

	return holds, units, events, nil
}

func (r *InventoryRepo) releaseExpired(ctx context.Context, db DB, eventID *int64, limit int) (int, int64, []int64, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := db.Query(ctx,
		`SELECT id
		 FROM holds
		 WHERE expires_at <= now()
		   AND ($1::bigint IS NULL OR event_id = $1)
		 ORDER BY expires_at
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`,
		eventID, limit,
	)
	if err != nil {
		return 0, 0, nil, translateDBErr(err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, 0, nil, translateDBErr(err)
	}

	if len(ids) == 0 {
		return 0, 0, nil, nil
	}

	units, events, err := r.release(ctx, db, ids)
	if err != nil {
		return 0, 0, nil, err
	}

	return len(ids), units, events, nil
}

// release returns the units of the given holds to their ticket types and
// deletes the holds.
func (r *InventoryRepo) release(ctx context.Context, db DB, ids []uuid.UUID) (int64, []int64, error) {
	var units int64
	if err := db.QueryRow(ctx,
		`WITH s AS (
		     SELECT ticket_type_id, sum(quantity) AS qty
		     FROM hold_items
		     WHERE hold_id = ANY($1)
		     GROUP BY ticket_type_id
		 ), u AS (
		     UPDATE ticket_types t
		     SET held = t.held - s.qty
		     FROM s
		     WHERE t.id = s.ticket_type_id
		     RETURNING s.qty
		 )
		 SELECT coalesce(sum(qty), 0) FROM u`,
		ids,
	).Scan(&units); err != nil {
		return 0, nil, translateDBErr(err)
	}

	rows, err := db.Query(ctx,
		`WITH gone AS (
		     DELETE FROM holds WHERE id = ANY($1) RETURNING event_id
		 )
		 SELECT DISTINCT event_id FROM gone`,
		ids,
	)
	if err != nil {
		return 0, nil, translateDBErr(err)
	}

	events, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, nil, translateDBErr(err)
	}

	return units, events, nil
}
