package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore maps opaque session tokens to profile IDs.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) TTL() time.Duration { return s.ttl }

func (s *SessionStore) Create(ctx context.Context, token string, userID int64) error {
	const op = "redisrepo.SessionStore.Create"

	if err := s.rdb.Set(ctx, KeySession(token), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Lookup returns the profile ID behind token; ok is false for unknown or
// expired tokens.
func (s *SessionStore) Lookup(ctx context.Context, token string) (int64, bool, error) {
	const op = "redisrepo.SessionStore.Lookup"

	v, err := s.rdb.Get(ctx, KeySession(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s:%w", op, err)
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: corrupt session: %w", op, err)
	}

	return id, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	const op = "redisrepo.SessionStore.Delete"

	if err := s.rdb.Del(ctx, KeySession(token)).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
