package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, subject string) (redisrepo.Decision, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).(redisrepo.Decision), args.Error(1)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSignUpValidation(t *testing.T) {
	s := New(nil, nil, nil, nil, discard())

	cases := []struct {
		name, email, password, display string
	}{
		{"bad email", "nope", "longenough", ""},
		{"display name in email", "Ann <ann@example.com>", "longenough", ""},
		{"short password", "ann@example.com", "short", ""},
		{"long password", "ann@example.com", strings.Repeat("x", 73), ""},
		{"long name", "ann@example.com", "longenough", strings.Repeat("n", 81)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.SignUp(context.Background(), tc.email, tc.password, tc.display, "")
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := normalizeEmail("  Ann@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", got)
}

func TestLoginRateLimited(t *testing.T) {
	l := &mockLimiter{}
	l.On("Allow", mock.Anything, "203.0.113.9").
		Return(redisrepo.Decision{Allowed: false, RetryAfter: 30 * time.Second}, nil)

	s := New(nil, nil, l, nil, discard())

	_, _, err := s.Login(context.Background(), "a@b.co", "whatever", Client{IP: "203.0.113.9"})

	var rl *domain.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
	l.AssertExpectations(t)
}

func TestAuthenticateUnknownToken(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(nil, redisrepo.NewSessionStore(db, time.Hour), nil, nil, discard())

	_, err := s.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	mock.ExpectGet(redisrepo.KeySession("abc")).RedisNil()
	_, err = s.Authenticate(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePasswordValidatesNewPassword(t *testing.T) {
	s := New(nil, nil, nil, nil, discard())

	err := s.ChangePassword(context.Background(), 1, "old-password", "short", Client{})

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestTokensAndReferralCodes(t *testing.T) {
	tok, err := newToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	code, err := newReferralCode()
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Regexp(t, `^[A-Z2-7]{8}$`, code)
}
