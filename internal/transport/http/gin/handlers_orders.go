package httpgin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/service"
)

// @Summary  Hold tickets of a published event
// @Param    id               path    int                true   "Event ID"
// @Param    Idempotency-Key  header  string             false  "replays the first response"
// @Param    body             body    CreateHoldRequest  true   "items and ttl"
// @Success  201  {object}  domain.Hold
// @Failure  409  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /events/{id}/holds [post]
func handleCreateHold(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateHoldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		me := mustProfile(c)
		ttl := time.Duration(req.TTLSec) * time.Second
		rlKey := "ip:" + c.ClientIP()

		idempotent(c, idem, "hold:"+strconv.FormatInt(eventID, 10), me.ID, func() (int, any, error) {
			h, err := svcs.Inventory.CreateHold(c.Request.Context(), me.ID, eventID, req.Items, ttl, rlKey)
			if err != nil {
				return 0, nil, err
			}
			return http.StatusCreated, h, nil
		})
	}
}

// @Summary  List my active holds
// @Success  200  {array}  domain.Hold
// @Security BearerAuth
// @Router   /holds [get]
func handleListHolds(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Inventory.ListHolds(c.Request.Context(), mustProfile(c).ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get hold
// @Param    id  path  string  true  "Hold ID"
// @Success  200  {object}  domain.Hold
// @Failure  404  {object}  ErrorResponse
// @Failure  410  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /holds/{id} [get]
func handleGetHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		h, err := svcs.Inventory.GetHold(c.Request.Context(), mustProfile(c).ID, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	}
}

// @Summary  Release a hold
// @Param    id  path  string  true  "Hold ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /holds/{id} [delete]
func handleCancelHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Inventory.CancelHold(c.Request.Context(), mustProfile(c).ID, id))
	}
}

// @Summary  Turn a hold into a confirmed order
// @Param    Idempotency-Key  header  string           false  "replays the first response"
// @Param    body             body    CheckoutRequest  true   "hold"
// @Success  201  {object}  domain.OrderWithTickets
// @Failure  404  {object}  ErrorResponse
// @Failure  410  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /checkout [post]
func handleCheckout(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		holdID, err := uuid.Parse(req.HoldID)
		if err != nil {
			badRequest(c, "invalid hold_id")
			return
		}

		me := mustProfile(c)

		idempotent(c, idem, "checkout", me.ID, func() (int, any, error) {
			out, err := svcs.Orders.Checkout(c.Request.Context(), me.ID, holdID)
			if err != nil {
				return 0, nil, err
			}
			return http.StatusCreated, out, nil
		})
	}
}

// @Summary  List my orders
// @Param    limit   query  int  false  "page size"
// @Param    offset  query  int  false  "offset"
// @Success  200  {array}  domain.Order
// @Security BearerAuth
// @Router   /orders [get]
func handleListMyOrders(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		out, err := svcs.Orders.ListMyOrders(c.Request.Context(), mustProfile(c).ID, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get order with tickets
// @Param    id  path  string  true  "Order ID"
// @Success  200  {object}  domain.OrderWithTickets
// @Failure  404  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /orders/{id} [get]
func handleGetOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Orders.GetOrder(c.Request.Context(), *mustProfile(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Cancel an order and void its tickets
// @Param    id  path  string  true  "Order ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /orders/{id}/cancel [post]
func handleCancelOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Orders.CancelOrder(c.Request.Context(), *mustProfile(c), id))
	}
}

// @Summary  List my tickets
// @Param    upcoming  query  bool  false  "only events that have not ended"
// @Success  200  {array}  domain.Ticket
// @Security BearerAuth
// @Router   /me/tickets [get]
func handleListMyTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		upcoming, _ := strconv.ParseBool(c.Query("upcoming"))
		out, err := svcs.Orders.ListMyTickets(c.Request.Context(), mustProfile(c).ID, upcoming)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  List orders of an event
// @Param    id      path   int     true   "Event ID"
// @Param    status  query  string  false  "pending, confirmed or cancelled"
// @Success  200  {array}  domain.Order
// @Router   /admin/events/{id}/orders [get]
func handleListEventOrders(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		limit, offset := pageParams(c)
		out, err := svcs.Orders.ListEventOrders(
			c.Request.Context(),
			eventID,
			domain.OrderStatus(c.Query("status")),
			limit,
			offset,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Scan a ticket at the door
// @Param    id    path  int             true  "Event ID"
// @Param    body  body  CheckInRequest  true  "code"
// @Success  200  {object}  domain.CheckIn
// @Router   /admin/events/{id}/check-in [post]
func handleCheckIn(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CheckInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		out, err := svcs.Tickets.Verify(c.Request.Context(), req.Code, eventID, req.DryRun)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Sales report of an event
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.EventReport
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/events/{id}/report [get]
func handleEventReport(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Analytics.EventReport(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Signups, referrals and viral coefficient
// @Param    from  query  string  false  "window start (RFC 3339)"
// @Param    to    query  string  false  "window end (RFC 3339)"
// @Param    top   query  int     false  "top referrers"
// @Success  200  {object}  domain.NetworkGrowth
// @Router   /admin/analytics/network-growth [get]
func handleNetworkGrowth(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := parseTimeQuery(c, "from")
		if !ok {
			return
		}
		to, ok := parseTimeQuery(c, "to")
		if !ok {
			return
		}
		var f, t time.Time
		if from != nil {
			f = *from
		}
		if to != nil {
			t = *to
		}
		out, err := svcs.Analytics.NetworkGrowth(c.Request.Context(), f, t, parseIntDefault(c.Query("top"), 0))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
