// Package vanity manages short paths (/go/<path>) that users request and
// admins approve.
package vanity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
)

var (
	ErrNotFound    = errors.New("vanity url not found")
	ErrPathTaken   = errors.New("path already taken")
	ErrNotPending  = errors.New("vanity url already reviewed")
	ErrReserved    = errors.New("path is reserved")
	ErrInvalidPath = errors.New("path must be 3-64 lowercase letters, digits or hyphens")
)

const (
	resolveTTL  = 5 * time.Minute
	defaultPage = 50
	maxPage     = 200
	maxNoteLen  = 500
)

var pathRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,63}$`)

var reserved = map[string]struct{}{
	"admin": {}, "api": {}, "events": {}, "go": {}, "media": {}, "metrics": {},
	"swagger": {}, "healthz": {}, "auth": {}, "me": {}, "ads": {}, "content": {},
	"orders": {}, "tickets": {}, "settings": {},
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	logger *slog.Logger
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// Request files a pending vanity URL for review.
//
// Returns:
//   - error: vanity.ErrInvalidPath or vanity.ErrReserved for unusable paths.
//   - error: vanity.ErrPathTaken if the path was requested before.
func (s *Service) Request(ctx context.Context, userID int64, path, target string) (*domain.VanityURL, error) {
	const op = "service.vanity.Request"

	path = strings.ToLower(strings.TrimSpace(path))
	if err := ValidatePath(path); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	target = strings.TrimSpace(target)
	if err := validateTarget(target); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	v, err := s.store.Vanity().Create(ctx, domain.VanityURL{Path: path, TargetURL: target, RequestedBy: userID})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrPathTaken)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return v, nil
}

// List returns the review queue; an empty status lists everything.
func (s *Service) List(ctx context.Context, status domain.VanityStatus, limit, offset int) ([]domain.VanityURL, error) {
	const op = "service.vanity.List"

	switch status {
	case "", domain.VanityPending, domain.VanityApproved, domain.VanityRejected:
	default:
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown vanity status"))
	}

	out, err := s.store.Vanity().List(ctx, status, domain.ClampLimit(limit, defaultPage, maxPage), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) Approve(ctx context.Context, reviewer, id int64, note string) (*domain.VanityURL, error) {
	return s.review(ctx, "service.vanity.Approve", id, domain.VanityApproved, reviewer, note)
}

func (s *Service) Reject(ctx context.Context, reviewer, id int64, note string) (*domain.VanityURL, error) {
	return s.review(ctx, "service.vanity.Reject", id, domain.VanityRejected, reviewer, note)
}

func (s *Service) review(
	ctx context.Context,
	op string,
	id int64,
	status domain.VanityStatus,
	reviewer int64,
	note string,
) (*domain.VanityURL, error) {
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLen {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("note", "is too long"))
	}

	v, changed, err := s.store.Vanity().Review(ctx, id, status, reviewer, note)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !changed {
		return nil, fmt.Errorf("%s:%w", op, ErrNotPending)
	}

	s.forget(ctx, v.Path)

	return v, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.vanity.Delete"

	v, err := s.store.Vanity().Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.forget(ctx, v.Path)

	return nil
}

// Resolve returns the redirect target of an approved path.
//
// Returns:
//   - error: vanity.ErrNotFound if the path is unknown or not approved.
func (s *Service) Resolve(ctx context.Context, path string) (string, error) {
	const op = "service.vanity.Resolve"

	path = strings.ToLower(path)
	if !pathRe.MatchString(path) {
		return "", fmt.Errorf("%s:%w", op, ErrNotFound)
	}

	target, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyVanity(path), resolveTTL,
		func(ctx context.Context) (string, error) {
			return s.store.Vanity().ResolveApproved(ctx, path)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return target, nil
}

func (s *Service) forget(ctx context.Context, path string) {
	if err := s.cache.Del(ctx, redisrepo.KeyVanity(path)); err != nil {
		s.logger.Warn("invalidate vanity cache", "path", path, "error", err)
	}
}

// ValidatePath reports whether path may be requested.
func ValidatePath(path string) error {
	if _, ok := reserved[path]; ok {
		return ErrReserved
	}
	if !pathRe.MatchString(path) {
		return ErrInvalidPath
	}
	return nil
}

// validateTarget accepts site-relative paths and absolute http(s) URLs.
func validateTarget(target string) error {
	if target == "" {
		return domain.Invalid("target_url", "is required")
	}

	if strings.HasPrefix(target, "/") {
		if strings.HasPrefix(target, "//") {
			return domain.Invalid("target_url", "must not be protocol-relative")
		}
		return nil
	}

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Invalid("target_url", "must be a site path or an http(s) URL")
	}

	return nil
}
