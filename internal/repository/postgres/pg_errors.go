package postgresrepo

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/eventhub/internal/repository"
)

// IsRetryable reports serialization failures and deadlocks, which are
// safe to retry as a whole transaction.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case "23505": // unique_violation
			return errors.Join(repository.ErrConflict, err)
		case "23503": // foreign_key_violation
			return errors.Join(repository.ErrReferenceMissing, err)
		case "23514": // check_violation
			return errors.Join(repository.ErrCheckViolation, err)
		}
	}

	return err
}
