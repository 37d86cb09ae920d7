package httpgin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/service"
	"github.com/kirinyoku/eventhub/internal/service/auth"
	"github.com/kirinyoku/eventhub/internal/service/inventory"
	"github.com/kirinyoku/eventhub/internal/service/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, opts Options) (*gin.Engine, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	logger := discardLogger()
	svcs := &service.Services{
		Auth: auth.New(nil, redisrepo.NewSessionStore(db, time.Hour), nil, nil, logger),
	}
	return NewRouter(svcs, opts, logger), mock
}

func do(r http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, Options{Health: func(context.Context) error { return nil }})

	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestHealthzUnavailable(t *testing.T) {
	r, _ := newTestRouter(t, Options{Health: func(context.Context) error { return errors.New("pg down") }})

	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	do(r, http.MethodGet, "/healthz", "")
	w := do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "eventhub_http_requests_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodGet, "/healthz", "", "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestAuthenticatedRoutesRejectAnonymous(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/me"},
		{http.MethodPost, "/checkout"},
		{http.MethodGet, "/orders"},
		{http.MethodPost, "/events/1/holds"},
		{http.MethodGet, "/admin/events"},
		{http.MethodPost, "/admin/media"},
	} {
		w := do(r, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestUnknownTokenIsRejected(t *testing.T) {
	r, mock := newTestRouter(t, Options{})
	mock.ExpectGet(redisrepo.KeySession("stale")).RedisNil()

	w := do(r, http.MethodGet, "/events", "", "Authorization", "Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignUpValidation(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodPost, "/auth/signup", `{"email":"not-an-email","password":"longenough"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email")

	w = do(r, http.MethodPost, "/auth/signup", `{"email":"a@b.co"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidPathParams(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodGet, "/events/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/events/0/availability", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamWithoutHub(t *testing.T) {
	r, _ := newTestRouter(t, Options{})

	w := do(r, http.MethodGet, "/events/1/availability/stream", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	engine := func(p *domain.Profile) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if p != nil {
				c.Set(ctxProfile, p)
			}
		})
		r.GET("/x", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	assert.Equal(t, http.StatusUnauthorized, do(engine(nil), http.MethodGet, "/x", "").Code)
	assert.Equal(t, http.StatusForbidden, do(engine(&domain.Profile{ID: 1, Role: domain.RoleUser}), http.MethodGet, "/x", "").Code)
	assert.Equal(t, http.StatusOK, do(engine(&domain.Profile{ID: 1, Role: domain.RoleAdmin}), http.MethodGet, "/x", "").Code)
}

type stubAuthenticator struct {
	profile *domain.Profile
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*domain.Profile, error) {
	if token != "good" {
		return nil, auth.ErrUnauthorized
	}
	return s.profile, nil
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(stubAuthenticator{profile: &domain.Profile{ID: 9}}))
	r.GET("/who", func(c *gin.Context) {
		p, ok := profileFrom(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, "%d:%s", p.ID, c.GetString(ctxToken))
	})

	assert.Equal(t, "anonymous", do(r, http.MethodGet, "/who", "").Body.String())
	assert.Equal(t, "anonymous", do(r, http.MethodGet, "/who", "", "Authorization", "Basic Zm9v").Body.String())
	assert.Equal(t, "9:good", do(r, http.MethodGet, "/who", "", "Authorization", "bearer good").Body.String())
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/who", "", "Authorization", "Bearer bad").Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(0.001, 1))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", "").Code)
	w := do(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRespondErr(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("op:%w", inventory.ErrTicketsUnavailable), http.StatusConflict},
		{fmt.Errorf("op:%w", orders.ErrHoldExpired), http.StatusGone},
		{fmt.Errorf("op:%w", orders.ErrOrderNotFound), http.StatusNotFound},
		{fmt.Errorf("op:%w", auth.ErrInvalidCredentials), http.StatusUnauthorized},
		{fmt.Errorf("op:%w", domain.Invalid("items", "must not be empty")), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/x", func(c *gin.Context) { respondErr(c, tc.err) })

		w := do(r, http.MethodGet, "/x", "")
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestRespondErrRateLimited(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		respondErr(c, fmt.Errorf("op:%w", &domain.RateLimitedError{RetryAfter: 1500 * time.Millisecond}))
	})

	w := do(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestRespondErrContention(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		respondErr(c, fmt.Errorf("service.inventory.CreateHold:%w", fmt.Errorf("%w: %w", repository.ErrContention, errors.New("40001"))))
	})

	w := do(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retry later")
}

func TestInternalErrorHidesDetail(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { respondErr(c, errors.New("pq: password authentication failed")) })

	w := do(r, http.MethodGet, "/x", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Token abc"} {
		_, ok := bearerToken(h)
		assert.False(t, ok, h)
	}
}
