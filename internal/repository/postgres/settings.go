package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
)

type SettingsRepo struct {
	conn
}

func (r *SettingsRepo) With(db DB) *SettingsRepo {
	return &SettingsRepo{r.conn.with(db)}
}

// Get returns a setting; Value is the raw JSON document.
//
// Returns:
//   - error: repository.ErrNotFound if the key is not set.
func (r *SettingsRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	const op = "postgresrepo.SettingsRepo.Get"

	var s domain.Setting
	if err := r.handle().QueryRow(ctx,
		`SELECT key, value::text, updated_at FROM site_settings WHERE key = $1`,
		key,
	).Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}

func (r *SettingsRepo) List(ctx context.Context) ([]domain.Setting, error) {
	const op = "postgresrepo.SettingsRepo.List"

	rows, err := r.handle().Query(ctx, `SELECT key, value::text, updated_at FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Setting, error) {
		var s domain.Setting
		err := row.Scan(&s.Key, &s.Value, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// Put stores value, which must be a JSON document, under key.
func (r *SettingsRepo) Put(ctx context.Context, key string, value []byte) (*domain.Setting, error) {
	const op = "postgresrepo.SettingsRepo.Put"

	s := domain.Setting{Key: key, Value: value}
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO site_settings(key, value)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		 RETURNING updated_at`,
		key, string(value),
	).Scan(&s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}

func (r *SettingsRepo) Delete(ctx context.Context, key string) error {
	const op = "postgresrepo.SettingsRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM site_settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}
