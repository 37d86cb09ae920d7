package httpgin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	"github.com/kirinyoku/eventhub/internal/service/ads"
	"github.com/kirinyoku/eventhub/internal/service/analytics"
	"github.com/kirinyoku/eventhub/internal/service/auth"
	"github.com/kirinyoku/eventhub/internal/service/catalog"
	"github.com/kirinyoku/eventhub/internal/service/content"
	"github.com/kirinyoku/eventhub/internal/service/favorites"
	"github.com/kirinyoku/eventhub/internal/service/inventory"
	"github.com/kirinyoku/eventhub/internal/service/orders"
	"github.com/kirinyoku/eventhub/internal/service/profiles"
	"github.com/kirinyoku/eventhub/internal/service/settings"
	"github.com/kirinyoku/eventhub/internal/service/vanity"
	"github.com/kirinyoku/eventhub/internal/storage/blob"
)

// errStatus maps service sentinels to HTTP statuses. The sentinel text is
// the response message.
var errStatus = []struct {
	err    error
	status int
}{
	// catalog
	{catalog.ErrEventNotFound, http.StatusNotFound},
	{catalog.ErrTicketTypeNotFound, http.StatusNotFound},
	{catalog.ErrSlugTaken, http.StatusConflict},
	{catalog.ErrVenueExists, http.StatusConflict},
	{catalog.ErrTicketTypeExists, http.StatusConflict},
	{catalog.ErrMissingReference, http.StatusUnprocessableEntity},
	{catalog.ErrInvalidTransition, http.StatusConflict},
	{catalog.ErrEventHasOrders, http.StatusConflict},
	{catalog.ErrCapacityBelowCommitted, http.StatusConflict},
	// inventory
	{inventory.ErrEventNotFound, http.StatusNotFound},
	{inventory.ErrTicketsUnavailable, http.StatusConflict},
	{inventory.ErrHoldNotFound, http.StatusNotFound},
	{inventory.ErrHoldExpired, http.StatusGone},
	// orders
	{orders.ErrHoldNotFound, http.StatusNotFound},
	{orders.ErrHoldExpired, http.StatusGone},
	{orders.ErrOrderNotFound, http.StatusNotFound},
	{orders.ErrOrderNotCancelable, http.StatusConflict},
	{orders.ErrOrderCheckedIn, http.StatusConflict},
	// auth and profiles
	{auth.ErrEmailTaken, http.StatusConflict},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrUnauthorized, http.StatusUnauthorized},
	{profiles.ErrProfileNotFound, http.StatusNotFound},
	{profiles.ErrPaymentMethodNotFound, http.StatusNotFound},
	{profiles.ErrCardExpired, http.StatusUnprocessableEntity},
	// favorites
	{favorites.ErrEventNotFound, http.StatusNotFound},
	// content
	{content.ErrPageNotFound, http.StatusNotFound},
	{content.ErrSlugTaken, http.StatusConflict},
	{content.ErrCategoryNotFound, http.StatusUnprocessableEntity},
	{content.ErrInvalidTransition, http.StatusConflict},
	// vanity
	{vanity.ErrNotFound, http.StatusNotFound},
	{vanity.ErrPathTaken, http.StatusConflict},
	{vanity.ErrNotPending, http.StatusConflict},
	{vanity.ErrReserved, http.StatusUnprocessableEntity},
	{vanity.ErrInvalidPath, http.StatusBadRequest},
	// ads and analytics
	{ads.ErrZoneNotFound, http.StatusNotFound},
	{ads.ErrAdNotFound, http.StatusNotFound},
	{ads.ErrZoneExists, http.StatusConflict},
	{analytics.ErrEventNotFound, http.StatusNotFound},
	// settings and media
	{settings.ErrNotFound, http.StatusNotFound},
	{blob.ErrNotFound, http.StatusNotFound},
	{blob.ErrInvalidKey, http.StatusNotFound},
	{blob.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{blob.ErrUnsupportedType, http.StatusUnsupportedMediaType},
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: ve.Error()})
		return
	}

	var rl *domain.RateLimitedError
	if errors.As(err, &rl) {
		secs := max(int(rl.RetryAfter.Seconds()+0.999), 1)
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	}

	if errors.Is(err, repository.ErrContention) {
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: repository.ErrContention.Error()})
		return
	}

	for _, m := range errStatus {
		if errors.Is(err, m.err) {
			c.AbortWithStatusJSON(m.status, ErrorResponse{Error: m.err.Error()})
			return
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
