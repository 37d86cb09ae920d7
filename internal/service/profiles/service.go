// Package profiles manages the signed-in user's profile, security log and
// saved payment methods, plus role administration.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
)

const (
	maxNameLen       = 80
	defaultActivity  = 20
	maxActivity      = 100
	defaultPageLimit = 50
	maxPageLimit     = 200
)

var last4Re = regexp.MustCompile(`^[0-9]{4}$`)

type Service struct {
	store  *postgresrepo.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(store *postgresrepo.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	const op = "service.profiles.Get"

	p, err := s.store.Profiles().GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrProfileNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return p, nil
}

// UpdateMe changes the display name and returns the updated profile.
func (s *Service) UpdateMe(ctx context.Context, id int64, displayName string) (*domain.Profile, error) {
	const op = "service.profiles.UpdateMe"

	displayName = strings.TrimSpace(displayName)
	if len(displayName) > maxNameLen {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("display_name", "is too long"))
	}

	if err := s.store.Profiles().UpdateDisplayName(ctx, id, displayName); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrProfileNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s.Get(ctx, id)
}

// List searches profiles by email or display name for admins.
func (s *Service) List(ctx context.Context, query string, limit, offset int) ([]domain.Profile, error) {
	const op = "service.profiles.List"

	out, err := s.store.Profiles().ListProfiles(ctx, strings.TrimSpace(query),
		domain.ClampLimit(limit, defaultPageLimit, maxPageLimit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// SetRole changes a profile's role and records it in the target's
// security log.
//
// Returns:
//   - error: profiles.ErrProfileNotFound if the profile does not exist.
func (s *Service) SetRole(ctx context.Context, id int64, role domain.Role, ip, userAgent string) error {
	const op = "service.profiles.SetRole"

	if role != domain.RoleUser && role != domain.RoleAdmin {
		return fmt.Errorf("%s:%w", op, domain.Invalid("role", "must be user or admin"))
	}

	repo := s.store.Profiles()

	if err := repo.SetRole(ctx, id, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrProfileNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := repo.LogSecurityEvent(ctx, domain.SecurityEvent{
		UserID:    &id,
		Kind:      domain.SecurityRoleChanged,
		IP:        ip,
		UserAgent: userAgent,
	}); err != nil {
		s.logger.Warn("security log write failed", "kind", domain.SecurityRoleChanged, "error", err)
	}

	return nil
}

func (s *Service) ListSecurityActivity(ctx context.Context, userID int64, limit int) ([]domain.SecurityEvent, error) {
	const op = "service.profiles.ListSecurityActivity"

	out, err := s.store.Profiles().ListSecurityEvents(ctx, userID, domain.ClampLimit(limit, defaultActivity, maxActivity))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// AddPaymentMethod stores a card reference for userID. Only the brand,
// last four digits, expiry and the processor reference are kept.
//
// Returns:
//   - error: profiles.ErrCardExpired if the expiry month has passed.
func (s *Service) AddPaymentMethod(ctx context.Context, userID int64, m domain.PaymentMethod) (*domain.PaymentMethod, error) {
	const op = "service.profiles.AddPaymentMethod"

	m.UserID = userID
	if err := s.validatePaymentMethod(&m); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := s.store.Profiles().AddPaymentMethod(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) ListPaymentMethods(ctx context.Context, userID int64) ([]domain.PaymentMethod, error) {
	const op = "service.profiles.ListPaymentMethods"

	out, err := s.store.Profiles().ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) DeletePaymentMethod(ctx context.Context, userID, id int64) error {
	const op = "service.profiles.DeletePaymentMethod"

	if err := s.store.Profiles().DeletePaymentMethod(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrPaymentMethodNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) SetDefaultPaymentMethod(ctx context.Context, userID, id int64) error {
	const op = "service.profiles.SetDefaultPaymentMethod"

	if err := s.store.Profiles().SetDefaultPaymentMethod(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrPaymentMethodNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) validatePaymentMethod(m *domain.PaymentMethod) error {
	m.Brand = strings.ToLower(strings.TrimSpace(m.Brand))
	m.ProviderRef = strings.TrimSpace(m.ProviderRef)

	switch {
	case m.Brand == "":
		return domain.Invalid("brand", "is required")
	case !last4Re.MatchString(m.Last4):
		return domain.Invalid("last4", "must be 4 digits")
	case m.ExpMonth < 1 || m.ExpMonth > 12:
		return domain.Invalid("exp_month", "must be between 1 and 12")
	case m.ExpYear < 2000 || m.ExpYear > 2100:
		return domain.Invalid("exp_year", "is out of range")
	case m.Expired(s.now()):
		return ErrCardExpired
	}

	return nil
}
