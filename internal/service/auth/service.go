// Package auth handles sign up, password login and session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordLen = 72
	maxNameLen     = 80
)

// Limiter throttles login attempts per client.
type Limiter interface {
	Allow(ctx context.Context, subject string) (redisrepo.Decision, error)
}

// Client identifies where a request came from for the security log.
type Client struct {
	IP        string
	UserAgent string
}

type Service struct {
	store       *postgresrepo.Store
	sessions    *redisrepo.SessionStore
	limiter     Limiter
	adminEmails []string
	logger      *slog.Logger
	cost        int
}

func New(
	store *postgresrepo.Store,
	sessions *redisrepo.SessionStore,
	limiter Limiter,
	adminEmails []string,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:       store,
		sessions:    sessions,
		limiter:     limiter,
		adminEmails: adminEmails,
		logger:      logger,
		cost:        bcrypt.DefaultCost,
	}
}

// SessionTTL is how long a login token stays valid.
func (s *Service) SessionTTL() time.Duration {
	if s.sessions == nil {
		return 0
	}
	return s.sessions.TTL()
}

// SignUp registers a profile. Emails listed as admin emails get the admin
// role. An unknown referral code is ignored.
//
// Returns:
//   - *domain.Profile: the new profile.
//   - error: auth.ErrEmailTaken if the email is registered already.
func (s *Service) SignUp(ctx context.Context, email, password, displayName, referralCode string) (*domain.Profile, error) {
	const op = "service.auth.SignUp"

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := checkPassword(password); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	displayName = strings.TrimSpace(displayName)
	if len(displayName) > maxNameLen {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("display_name", "is too long"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	p := domain.Profile{Email: email, DisplayName: displayName, Role: domain.RoleUser}
	if slices.Contains(s.adminEmails, email) {
		p.Role = domain.RoleAdmin
	}

	repo := s.store.Profiles()

	if code := strings.ToUpper(strings.TrimSpace(referralCode)); code != "" {
		id, err := repo.ReferrerID(ctx, code)
		switch {
		case err == nil:
			p.ReferredBy = &id
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	for attempt := 0; ; attempt++ {
		if p.ReferralCode, err = newReferralCode(); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		p.ID, err = repo.CreateProfile(ctx, p, hash)
		if err == nil {
			break
		}

		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		if _, _, lookupErr := repo.GetCredentials(ctx, email); lookupErr == nil || attempt >= 2 {
			return nil, fmt.Errorf("%s:%w", op, ErrEmailTaken)
		}
	}

	created, err := repo.GetProfile(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return created, nil
}

// Login checks a password and opens a session.
//
// Returns:
//   - string: the session token.
//   - *domain.Profile: the signed-in profile.
//   - error: *domain.RateLimitedError when the client tries too often.
//   - error: auth.ErrInvalidCredentials for an unknown email or a wrong
//     password; the two are not distinguished.
func (s *Service) Login(ctx context.Context, email, password string, client Client) (string, *domain.Profile, error) {
	const op = "service.auth.Login"

	if s.limiter != nil && client.IP != "" {
		d, err := s.limiter.Allow(ctx, client.IP)
		if err != nil {
			return "", nil, fmt.Errorf("%s:%w", op, err)
		}
		if !d.Allowed {
			return "", nil, fmt.Errorf("%s:%w", op, &domain.RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	email = strings.ToLower(strings.TrimSpace(email))

	repo := s.store.Profiles()

	p, hash, err := repo.GetCredentials(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", nil, fmt.Errorf("%s:%w", op, err)
		}
		// Spend the same time as for a known email.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		s.audit(ctx, nil, domain.SecurityLoginFailed, client)
		return "", nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		s.audit(ctx, &p.ID, domain.SecurityLoginFailed, client)
		return "", nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
	}

	token, err := newToken()
	if err != nil {
		return "", nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.sessions.Create(ctx, token, p.ID); err != nil {
		return "", nil, fmt.Errorf("%s:%w", op, err)
	}

	s.audit(ctx, &p.ID, domain.SecurityLoginSuccess, client)

	return token, p, nil
}

func (s *Service) Logout(ctx context.Context, userID int64, token string, client Client) error {
	const op = "service.auth.Logout"

	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.audit(ctx, &userID, domain.SecurityLogout, client)

	return nil
}

// Authenticate resolves a session token to its profile.
//
// Returns:
//   - error: auth.ErrUnauthorized for unknown or expired tokens and for
//     sessions whose profile was deleted.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Profile, error) {
	const op = "service.auth.Authenticate"

	if token == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	id, ok, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	p, err := s.store.Profiles().GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return p, nil
}

// ChangePassword replaces the password after checking the current one.
//
// Returns:
//   - error: auth.ErrInvalidCredentials if oldPassword is wrong.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string, client Client) error {
	const op = "service.auth.ChangePassword"

	if err := checkPassword(newPassword); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	repo := s.store.Profiles()

	hash, err := repo.GetPasswordHash(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(oldPassword)); err != nil {
		return fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
	}

	next, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := repo.SetPasswordHash(ctx, userID, next); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.audit(ctx, &userID, domain.SecurityPasswordChanged, client)

	return nil
}

// audit writes to the security log. A failed write is logged and does not
// fail the request.
func (s *Service) audit(ctx context.Context, userID *int64, kind domain.SecurityEventKind, client Client) {
	err := s.store.Profiles().LogSecurityEvent(ctx, domain.SecurityEvent{
		UserID:    userID,
		Kind:      kind,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	})
	if err != nil {
		s.logger.Warn("security log write failed", "kind", kind, "error", err)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "is not a valid address")
	}

	return email, nil
}

func checkPassword(pw string) error {
	if len(pw) < minPasswordLen {
		return domain.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if len(pw) > maxPasswordLen {
		return domain.Invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLen))
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// newReferralCode returns 8 base32 characters.
func newReferralCode() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(b), nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("eventhub-timing-equalizer"), bcrypt.DefaultCost)
	return h
})
