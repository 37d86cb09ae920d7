package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/eventhub/internal/live"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/service"
	"github.com/kirinyoku/eventhub/internal/storage/blob"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options carries the adapters the router uses besides the services.
type Options struct {
	Idempotency *redisrepo.IdempotencyStore
	Hub         *live.Hub
	Media       *blob.FileStore

	// Health reports whether the backing stores are reachable.
	Health func(ctx context.Context) error

	CORSOrigins []string
	GlobalRPS   float64
	GlobalBurst int

	// StreamHeartbeat is how often an idle availability stream sends a
	// keep-alive comment. Zero means 15s.
	StreamHeartbeat time.Duration
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		MetricsMiddleware(),
		CORS(opts.CORSOrigins),
		SecurityHeaders(),
		RateLimitMiddleware(opts.GlobalRPS, opts.GlobalBurst),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", handleHealth(opts.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})

	api := r.Group("/", AuthMiddleware(svcs.Auth))

	// Public API
	api.GET("/events", handleListEvents(svcs))
	api.GET("/events/:id", handleGetEvent(svcs, logger))
	api.GET("/events/:id/ticket-types", handleListTicketTypes(svcs))
	api.GET("/events/:id/availability", handleGetAvailability(svcs))
	api.GET("/events/:id/availability/stream", handleAvailabilityStream(svcs, opts.Hub, opts.StreamHeartbeat))
	api.GET("/categories", handleListCategories(svcs))

	api.GET("/content", handleListContent(svcs))
	api.GET("/content/:slug", handleGetContent(svcs))
	api.GET("/go/:path", handleResolveVanity(svcs))
	api.GET("/settings/:key", handleGetSetting(svcs))

	api.GET("/ads/zones/:key", handleServeAd(svcs))
	api.GET("/ads/:id/click", handleAdClick(svcs))

	api.GET("/media/:key", handleServeMedia(opts.Media))

	api.POST("/auth/signup", handleSignUp(svcs))
	api.POST("/auth/login", handleLogin(svcs))

	// Authenticated API
	user := api.Group("/", RequireAuth())
	{
		user.POST("/auth/logout", handleLogout(svcs))

		user.GET("/me", handleGetMe(svcs))
		user.PATCH("/me", handleUpdateMe(svcs))
		user.POST("/me/password", handleChangePassword(svcs))
		user.GET("/me/security-activity", handleSecurityActivity(svcs))

		user.GET("/me/payment-methods", handleListPaymentMethods(svcs))
		user.POST("/me/payment-methods", handleAddPaymentMethod(svcs))
		user.DELETE("/me/payment-methods/:id", handleDeletePaymentMethod(svcs))
		user.POST("/me/payment-methods/:id/default", handleSetDefaultPaymentMethod(svcs))

		user.GET("/me/saved-events", handleListSavedEvents(svcs))
		user.PUT("/me/saved-events/:id", handleSaveEvent(svcs))
		user.DELETE("/me/saved-events/:id", handleUnsaveEvent(svcs))

		user.GET("/me/tickets", handleListMyTickets(svcs))

		user.POST("/events/:id/holds", handleCreateHold(svcs, opts.Idempotency))
		user.GET("/holds", handleListHolds(svcs))
		user.GET("/holds/:id", handleGetHold(svcs))
		user.DELETE("/holds/:id", handleCancelHold(svcs))

		user.POST("/checkout", handleCheckout(svcs, opts.Idempotency))
		user.GET("/orders", handleListMyOrders(svcs))
		user.GET("/orders/:id", handleGetOrder(svcs))
		user.POST("/orders/:id/cancel", handleCancelOrder(svcs))

		user.POST("/vanity", handleRequestVanity(svcs))
	}

	// Admin API
	admin := api.Group("/admin", RequireAdmin())
	{
		admin.GET("/organizers", handleListOrganizers(svcs))
		admin.POST("/organizers", handleCreateOrganizer(svcs))
		admin.GET("/venues", handleListVenues(svcs))
		admin.POST("/venues", handleCreateVenue(svcs))
		admin.POST("/categories", handleCreateCategory(svcs))

		admin.GET("/events", handleAdminListEvents(svcs))
		admin.POST("/events", handleCreateEvent(svcs))
		admin.GET("/events/:id", handleAdminGetEvent(svcs))
		admin.PUT("/events/:id", handleUpdateEvent(svcs))
		admin.POST("/events/:id/status", handleSetEventStatus(svcs))
		admin.DELETE("/events/:id", handleDeleteEvent(svcs))
		admin.GET("/events/:id/ticket-types", handleAdminListTicketTypes(svcs))
		admin.POST("/events/:id/ticket-types", handleCreateTicketType(svcs))
		admin.PUT("/events/:id/ticket-types/:typeID", handleUpdateTicketType(svcs))
		admin.GET("/events/:id/orders", handleListEventOrders(svcs))
		admin.GET("/events/:id/report", handleEventReport(svcs))
		admin.POST("/events/:id/check-in", handleCheckIn(svcs))

		admin.GET("/content", handleAdminListContent(svcs))
		admin.POST("/content", handleCreatePage(svcs))
		admin.GET("/content/:id", handleAdminGetPage(svcs))
		admin.PUT("/content/:id", handleUpdatePage(svcs))
		admin.POST("/content/:id/status", handleSetPageStatus(svcs))
		admin.DELETE("/content/:id", handleDeletePage(svcs))

		admin.GET("/vanity", handleListVanity(svcs))
		admin.POST("/vanity/:id/approve", handleReviewVanity(svcs, true))
		admin.POST("/vanity/:id/reject", handleReviewVanity(svcs, false))
		admin.DELETE("/vanity/:id", handleDeleteVanity(svcs))

		admin.GET("/ad-zones", handleListAdZones(svcs))
		admin.POST("/ad-zones", handleCreateAdZone(svcs))
		admin.GET("/ad-zones/:id/ads", handleListAds(svcs))
		admin.POST("/ads", handleCreateAd(svcs))
		admin.PUT("/ads/:id", handleUpdateAd(svcs))
		admin.POST("/ads/:id/status", handleSetAdStatus(svcs))
		admin.DELETE("/ads/:id", handleDeleteAd(svcs))

		admin.GET("/settings", handleListSettings(svcs))
		admin.PUT("/settings/:key", handlePutSetting(svcs))
		admin.DELETE("/settings/:key", handleDeleteSetting(svcs))

		admin.POST("/media", handleUploadMedia(opts.Media))
		admin.DELETE("/media/:key", handleDeleteMedia(opts.Media))

		admin.GET("/profiles", handleListProfiles(svcs))
		admin.PUT("/profiles/:id/role", handleSetRole(svcs))

		admin.GET("/analytics/network-growth", handleNetworkGrowth(svcs))
	}

	return r
}

// @Summary  Health check
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  ErrorResponse
// @Router   /healthz [get]
func handleHealth(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseTimeQuery reads an optional RFC 3339 query parameter.
func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		badRequest(c, "invalid "+name+": want RFC 3339")
		return nil, false
	}
	return &t, true
}

func pageParams(c *gin.Context) (limit, offset int) {
	return parseIntDefault(c.Query("limit"), 0), max(parseIntDefault(c.Query("offset"), 0), 0)
}
