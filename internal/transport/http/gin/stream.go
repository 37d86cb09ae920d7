package httpgin

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/eventhub/internal/live"
	"github.com/kirinyoku/eventhub/internal/service"
)

const defaultHeartbeat = 15 * time.Second

// @Summary  Stream availability changes
// @Description  Server-sent events. Each "availability" event carries the
// @Description  current counts; the first one is sent on connect.
// @Produce  text/event-stream
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.EventCounts
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/availability/stream [get]
func handleAvailabilityStream(svcs *service.Services, hub *live.Hub, heartbeat time.Duration) gin.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if hub == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "live updates disabled"})
			return
		}
		ctx := c.Request.Context()

		// Subscribe before the first snapshot so no change slips between.
		sub, unsubscribe := hub.Subscribe(eventID)
		defer unsubscribe()

		first, err := svcs.Catalog.Availability(ctx, eventID)
		if err != nil {
			respondErr(c, err)
			return
		}

		// Streams outlive SERVER_WRITE_TIMEOUT.
		_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		c.SSEvent("availability", first)
		c.Writer.Flush()

		tick := time.NewTicker(heartbeat)
		defer tick.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case v, ok := <-sub.C():
				if !ok {
					return false
				}
				c.SSEvent("availability", v)
				return true
			case <-tick.C:
				_, err := io.WriteString(w, ": ping\n\n")
				return err == nil
			}
		})
	}
}
