package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
)

type VanityRepo struct {
	conn
}

func (r *VanityRepo) With(db DB) *VanityRepo {
	return &VanityRepo{r.conn.with(db)}
}

const vanityColumns = `id, path, target_url, requested_by, status, reviewed_by, reviewed_at, note, created_at`

func scanVanity(row pgx.Row) (domain.VanityURL, error) {
	var v domain.VanityURL
	err := row.Scan(
		&v.ID,
		&v.Path,
		&v.TargetURL,
		&v.RequestedBy,
		&v.Status,
		&v.ReviewedBy,
		&v.ReviewedAt,
		&v.Note,
		&v.CreatedAt,
	)
	return v, err
}

// Create queues a vanity path for review.
//
// Returns:
//   - error: repository.ErrConflict if the path is taken.
func (r *VanityRepo) Create(ctx context.Context, v domain.VanityURL) (*domain.VanityURL, error) {
	const op = "postgresrepo.VanityRepo.Create"

	out, err := scanVanity(r.handle().QueryRow(ctx,
		`INSERT INTO vanity_urls(path, target_url, requested_by)
		 VALUES ($1, $2, $3)
		 RETURNING `+vanityColumns,
		v.Path, v.TargetURL, v.RequestedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &out, nil
}

func (r *VanityRepo) Get(ctx context.Context, id int64) (*domain.VanityURL, error) {
	const op = "postgresrepo.VanityRepo.Get"

	v, err := scanVanity(r.handle().QueryRow(ctx,
		`SELECT `+vanityColumns+` FROM vanity_urls WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &v, nil
}

// ResolveApproved returns the target of an approved path.
//
// Returns:
//   - error: repository.ErrNotFound if the path is unknown or not approved.
func (r *VanityRepo) ResolveApproved(ctx context.Context, path string) (string, error) {
	const op = "postgresrepo.VanityRepo.ResolveApproved"

	var target string
	if err := r.handle().QueryRow(ctx,
		`SELECT target_url FROM vanity_urls WHERE path = $1 AND status = 'approved'`,
		path,
	).Scan(&target); err != nil {
		return "", fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return target, nil
}

func (r *VanityRepo) List(ctx context.Context, status domain.VanityStatus, limit, offset int) ([]domain.VanityURL, error) {
	const op = "postgresrepo.VanityRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+vanityColumns+`
		 FROM vanity_urls
		 WHERE $1 = '' OR status = $1
		 ORDER BY created_at, id
		 LIMIT $2 OFFSET $3`,
		string(status), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.VanityURL, error) {
		return scanVanity(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// Review moves a pending request to status.
//
// Returns:
//   - *domain.VanityURL: the request after the call.
//   - bool: false if the request exists but is no longer pending.
//   - error: repository.ErrNotFound if the request does not exist.
func (r *VanityRepo) Review(
	ctx context.Context,
	id int64,
	status domain.VanityStatus,
	reviewer int64,
	note string,
) (*domain.VanityURL, bool, error) {
	const op = "postgresrepo.VanityRepo.Review"

	v, err := scanVanity(r.handle().QueryRow(ctx,
		`UPDATE vanity_urls
		 SET status = $2, reviewed_by = $3, reviewed_at = now(), note = $4
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+vanityColumns,
		id, status, reviewer, note,
	))
	if err == nil {
		return &v, true, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	cur, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, err)
	}

	return cur, false, nil
}

func (r *VanityRepo) Delete(ctx context.Context, id int64) (*domain.VanityURL, error) {
	const op = "postgresrepo.VanityRepo.Delete"

	v, err := scanVanity(r.handle().QueryRow(ctx,
		`DELETE FROM vanity_urls WHERE id = $1 RETURNING `+vanityColumns,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &v, nil
}
