package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
)

type ProfileRepo struct {
	conn
}

func (r *ProfileRepo) With(db DB) *ProfileRepo {
	return &ProfileRepo{r.conn.with(db)}
}

const profileColumns = `id, email, display_name, role, referral_code, referred_by, created_at`

func scanProfile(row pgx.Row, extra ...any) (domain.Profile, error) {
	var p domain.Profile
	dest := append([]any{
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.Role,
		&p.ReferralCode,
		&p.ReferredBy,
		&p.CreatedAt,
	}, extra...)
	err := row.Scan(dest...)
	return p, err
}

// CreateProfile inserts a profile and returns its ID.
//
// Returns:
//   - error: repository.ErrConflict if the email or referral code is taken.
func (r *ProfileRepo) CreateProfile(ctx context.Context, p domain.Profile, passwordHash []byte) (int64, error) {
	const op = "postgresrepo.ProfileRepo.CreateProfile"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO profiles(email, password_hash, display_name, role, referral_code, referred_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		p.Email, string(passwordHash), p.DisplayName, p.Role, p.ReferralCode, p.ReferredBy,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *ProfileRepo) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	const op = "postgresrepo.ProfileRepo.GetProfile"

	p, err := scanProfile(r.handle().QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &p, nil
}

// GetCredentials loads a profile by email together with its password hash.
//
// Returns:
//   - error: repository.ErrNotFound if no profile has the email.
func (r *ProfileRepo) GetCredentials(ctx context.Context, email string) (*domain.Profile, []byte, error) {
	const op = "postgresrepo.ProfileRepo.GetCredentials"

	var hash string
	p, err := scanProfile(r.handle().QueryRow(ctx,
		`SELECT `+profileColumns+`, password_hash FROM profiles WHERE email = $1`,
		email,
	), &hash)
	if err != nil {
		return nil, nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &p, []byte(hash), nil
}

func (r *ProfileRepo) GetPasswordHash(ctx context.Context, id int64) ([]byte, error) {
	const op = "postgresrepo.ProfileRepo.GetPasswordHash"

	var hash string
	if err := r.handle().QueryRow(ctx,
		`SELECT password_hash FROM profiles WHERE id = $1`,
		id,
	).Scan(&hash); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return []byte(hash), nil
}

// ReferrerID resolves a referral code to the referring profile.
func (r *ProfileRepo) ReferrerID(ctx context.Context, code string) (int64, error) {
	const op = "postgresrepo.ProfileRepo.ReferrerID"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`SELECT id FROM profiles WHERE referral_code = $1`,
		code,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *ProfileRepo) ListProfiles(ctx context.Context, query string, limit, offset int) ([]domain.Profile, error) {
	const op = "postgresrepo.ProfileRepo.ListProfiles"

	rows, err := r.handle().Query(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 WHERE $1 = '' OR email ILIKE $2 OR display_name ILIKE $2
		 ORDER BY id
		 LIMIT $3 OFFSET $4`,
		query, "%"+escapeLike(query)+"%", limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Profile, error) {
		return scanProfile(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *ProfileRepo) UpdateDisplayName(ctx context.Context, id int64, name string) error {
	const op = "postgresrepo.ProfileRepo.UpdateDisplayName"

	return r.updateOne(ctx, op, `UPDATE profiles SET display_name = $2 WHERE id = $1`, id, name)
}

func (r *ProfileRepo) SetPasswordHash(ctx context.Context, id int64, hash []byte) error {
	const op = "postgresrepo.ProfileRepo.SetPasswordHash"

	return r.updateOne(ctx, op, `UPDATE profiles SET password_hash = $2 WHERE id = $1`, id, string(hash))
}

func (r *ProfileRepo) SetRole(ctx context.Context, id int64, role domain.Role) error {
	const op = "postgresrepo.ProfileRepo.SetRole"

	return r.updateOne(ctx, op, `UPDATE profiles SET role = $2 WHERE id = $1`, id, role)
}

func (r *ProfileRepo) updateOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.handle().Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *ProfileRepo) LogSecurityEvent(ctx context.Context, e domain.SecurityEvent) error {
	const op = "postgresrepo.ProfileRepo.LogSecurityEvent"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO security_activity(user_id, kind, ip, user_agent)
		 VALUES ($1, $2, $3, $4)`,
		e.UserID, e.Kind, e.IP, e.UserAgent,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *ProfileRepo) ListSecurityEvents(ctx context.Context, userID int64, limit int) ([]domain.SecurityEvent, error) {
	const op = "postgresrepo.ProfileRepo.ListSecurityEvents"

	rows, err := r.handle().Query(ctx,
		`SELECT id, user_id, kind, ip, user_agent, created_at
		 FROM security_activity
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SecurityEvent, error) {
		var e domain.SecurityEvent
		err := row.Scan(&e.ID, &e.UserID, &e.Kind, &e.IP, &e.UserAgent, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// AddPaymentMethod stores a card reference. The user's first method becomes
// the default; a method added with IsDefault takes the default over.
func (r *ProfileRepo) AddPaymentMethod(ctx context.Context, m domain.PaymentMethod) (*domain.PaymentMethod, error) {
	const op = "postgresrepo.ProfileRepo.AddPaymentMethod"

	err := r.inTx(ctx, func(db DB) error {
		var count int
		if err := db.QueryRow(ctx,
			`SELECT count(*) FROM saved_payment_methods WHERE user_id = $1`,
			m.UserID,
		).Scan(&count); err != nil {
			return translateDBErr(err)
		}

		if count == 0 {
			m.IsDefault = true
		}

		if m.IsDefault {
			if _, err := db.Exec(ctx,
				`UPDATE saved_payment_methods SET is_default = false WHERE user_id = $1 AND is_default`,
				m.UserID,
			); err != nil {
				return translateDBErr(err)
			}
		}

		return translateDBErr(db.QueryRow(ctx,
			`INSERT INTO saved_payment_methods(user_id, brand, last4, exp_month, exp_year, is_default, provider_ref)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at`,
			m.UserID, m.Brand, m.Last4, m.ExpMonth, m.ExpYear, m.IsDefault, m.ProviderRef,
		).Scan(&m.ID, &m.CreatedAt))
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &m, nil
}

func (r *ProfileRepo) ListPaymentMethods(ctx context.Context, userID int64) ([]domain.PaymentMethod, error) {
	const op = "postgresrepo.ProfileRepo.ListPaymentMethods"

	rows, err := r.handle().Query(ctx,
		`SELECT id, user_id, brand, last4, exp_month, exp_year, is_default, provider_ref, created_at
		 FROM saved_payment_methods
		 WHERE user_id = $1
		 ORDER BY is_default DESC, created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PaymentMethod, error) {
		var m domain.PaymentMethod
		err := row.Scan(
			&m.ID,
			&m.UserID,
			&m.Brand,
			&m.Last4,
			&m.ExpMonth,
			&m.ExpYear,
			&m.IsDefault,
			&m.ProviderRef,
			&m.CreatedAt,
		)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// DeletePaymentMethod removes a user's method. When the default is removed
// the oldest remaining method becomes the default.
//
// Returns:
//   - error: repository.ErrNotFound if the user has no such method.
func (r *ProfileRepo) DeletePaymentMethod(ctx context.Context, userID, id int64) error {
	const op = "postgresrepo.ProfileRepo.DeletePaymentMethod"

	err := r.inTx(ctx, func(db DB) error {
		var wasDefault bool
		if err := db.QueryRow(ctx,
			`DELETE FROM saved_payment_methods
			 WHERE id = $1 AND user_id = $2
			 RETURNING is_default`,
			id, userID,
		).Scan(&wasDefault); err != nil {
			return translateDBErr(err)
		}

		if !wasDefault {
			return nil
		}

		_, err := db.Exec(ctx,
			`UPDATE saved_payment_methods
			 SET is_default = true
			 WHERE id = (
			     SELECT id FROM saved_payment_methods
			     WHERE user_id = $1
			     ORDER BY created_at, id
			     LIMIT 1
			 )`,
			userID,
		)
		return translateDBErr(err)
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// SetDefaultPaymentMethod makes id the user's only default method.
//
// Returns:
//   - error: repository.ErrNotFound if the user has no such method.
func (r *ProfileRepo) SetDefaultPaymentMethod(ctx context.Context, userID, id int64) error {
	const op = "postgresrepo.ProfileRepo.SetDefaultPaymentMethod"

	err := r.inTx(ctx, func(db DB) error {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM saved_payment_methods WHERE id = $1 AND user_id = $2)`,
			id, userID,
		).Scan(&exists); err != nil {
			return translateDBErr(err)
		}

		if !exists {
			return repository.ErrNotFound
		}

		batch := &pgx.Batch{}
		batch.Queue(
			`UPDATE saved_payment_methods SET is_default = false WHERE user_id = $1 AND is_default AND id <> $2`,
			userID, id,
		)
		batch.Queue(`UPDATE saved_payment_methods SET is_default = true WHERE id = $1`, id)

		return translateDBErr(db.SendBatch(ctx, batch).Close())
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
