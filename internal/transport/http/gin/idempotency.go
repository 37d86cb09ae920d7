package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
)

const (
	idemHeader  = "Idempotency-Key"
	idemLockTTL = 60 * time.Second
	maxIdemKey  = 128
)

// idempotent runs fn at most once per Idempotency-Key, scope and user. A
// repeated request replays the stored response; a request racing one in
// flight gets 409. Failed runs release the key so they can be retried.
// Without the header fn just runs.
func idempotent(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	scope string,
	userID int64,
	fn func() (int, any, error),
) {
	idemKey := strings.TrimSpace(c.GetHeader(idemHeader))
	if idem == nil || idemKey == "" {
		status, v, err := fn()
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(status, v)
		return
	}

	if len(idemKey) > maxIdemKey {
		badRequest(c, "Idempotency-Key is too long")
		return
	}

	ctx := c.Request.Context()
	key := redisrepo.KeyIdem(scope, userID, idemKey)

	if replay(c, idem, key, idemKey) {
		return
	}

	locked, err := idem.AcquireLock(ctx, key, idemLockTTL)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !locked {
		if replay(c, idem, key, idemKey) {
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
		return
	}

	status, v, err := fn()
	if err != nil {
		_ = idem.Release(ctx, key)
		respondErr(c, err)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		_ = idem.Release(ctx, key)
		respondErr(c, err)
		return
	}

	if err := idem.SaveResult(ctx, key, status, body); err != nil {
		_ = c.Error(err)
	}

	c.Header(idemHeader, idemKey)
	c.Data(status, "application/json; charset=utf-8", body)
}

func replay(c *gin.Context, idem *redisrepo.IdempotencyStore, key, idemKey string) bool {
	res, ok, err := idem.GetResult(c.Request.Context(), key)
	if err != nil || !ok {
		return false
	}
	c.Header(idemHeader, idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(res.Status, "application/json; charset=utf-8", res.Body)
	return true
}
