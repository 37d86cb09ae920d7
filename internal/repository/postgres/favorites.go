package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
)

type FavoriteRepo struct {
	conn
}

func (r *FavoriteRepo) With(db DB) *FavoriteRepo {
	return &FavoriteRepo{r.conn.with(db)}
}

// Save bookmarks an event; saving twice is a no-op.
//
// Returns:
//   - error: repository.ErrReferenceMissing if the event does not exist.
func (r *FavoriteRepo) Save(ctx context.Context, userID, eventID int64) error {
	const op = "postgresrepo.FavoriteRepo.Save"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO saved_events(user_id, event_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, eventID,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *FavoriteRepo) Unsave(ctx context.Context, userID, eventID int64) error {
	const op = "postgresrepo.FavoriteRepo.Unsave"

	if _, err := r.handle().Exec(ctx,
		`DELETE FROM saved_events WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *FavoriteRepo) List(ctx context.Context, userID int64) ([]domain.SavedEvent, error) {
	const op = "postgresrepo.FavoriteRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+eventColumns+`, s.created_at
		 FROM saved_events s
		 JOIN events e ON e.id = s.event_id
		 WHERE s.user_id = $1
		 ORDER BY s.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SavedEvent, error) {
		var s domain.SavedEvent
		e := &s.Event
		err := row.Scan(
			&e.ID,
			&e.OrganizerID,
			&e.VenueID,
			&e.CategoryID,
			&e.Title,
			&e.Slug,
			&e.Description,
			&e.ImageKey,
			&e.Starts,
			&e.Ends,
			&e.Status,
			&e.CreatedAt,
			&e.UpdatedAt,
			&s.SavedAt,
		)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}
