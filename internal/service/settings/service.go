// Package settings stores site-wide JSON settings such as the theme.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
)

var ErrNotFound = errors.New("setting not found")

const (
	cacheTTL      = 10 * time.Minute
	maxValueBytes = 64 << 10
)

var keyRe = regexp.MustCompile(`^[a-z][a-z0-9_.-]{0,63}$`)

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	logger *slog.Logger
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// Get returns a setting, served from cache when possible.
//
// Returns:
//   - error: settings.ErrNotFound if the key is not set.
func (s *Service) Get(ctx context.Context, key string) (*domain.Setting, error) {
	const op = "service.settings.Get"

	if !keyRe.MatchString(key) {
		return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
	}

	v, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeySetting(key), cacheTTL,
		func(ctx context.Context) (*domain.Setting, error) {
			return s.store.Settings().Get(ctx, key)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return v, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Setting, error) {
	const op = "service.settings.List"

	out, err := s.store.Settings().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Put stores value under key. The value must be a JSON document.
func (s *Service) Put(ctx context.Context, key string, value json.RawMessage) (*domain.Setting, error) {
	const op = "service.settings.Put"

	if err := validate(key, value); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := s.store.Settings().Put(ctx, key, value)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.forget(ctx, key)

	return out, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	const op = "service.settings.Delete"

	if err := s.store.Settings().Delete(ctx, key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.forget(ctx, key)

	return nil
}

func (s *Service) forget(ctx context.Context, key string) {
	if err := s.cache.Del(ctx, redisrepo.KeySetting(key)); err != nil {
		s.logger.Warn("invalidate setting cache", "key", key, "error", err)
	}
}

func validate(key string, value json.RawMessage) error {
	switch {
	case !keyRe.MatchString(key):
		return domain.Invalid("key", "must match ^[a-z][a-z0-9_.-]{0,63}$")
	case len(value) == 0 || !json.Valid(value):
		return domain.Invalid("value", "must be a JSON document")
	case len(value) > maxValueBytes:
		return domain.Invalid("value", "is larger than 64 KiB")
	}
	return nil
}
