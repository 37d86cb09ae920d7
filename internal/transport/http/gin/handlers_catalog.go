package httpgin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/service"
)

// @Summary  List published events
// @Param    category  query  string  false  "category slug"
// @Param    city      query  string  false  "venue city"
// @Param    q         query  string  false  "title search"
// @Param    from      query  string  false  "starts at or after (RFC 3339)"
// @Param    to        query  string  false  "starts before (RFC 3339)"
// @Param    limit     query  int     false  "page size"
// @Param    offset    query  int     false  "offset"
// @Success  200  {array}   domain.Event
// @Failure  400  {object}  ErrorResponse
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return listEvents(svcs, false)
}

// @Summary  List events in any status
// @Param    status  query  string  false  "draft, published or archived"
// @Success  200  {array}   domain.Event
// @Router   /admin/events [get]
func handleAdminListEvents(svcs *service.Services) gin.HandlerFunc {
	return listEvents(svcs, true)
}

func listEvents(svcs *service.Services, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := parseTimeQuery(c, "from")
		if !ok {
			return
		}
		to, ok := parseTimeQuery(c, "to")
		if !ok {
			return
		}
		limit, offset := pageParams(c)

		f := domain.EventFilter{
			CategorySlug: c.Query("category"),
			City:         c.Query("city"),
			Query:        c.Query("q"),
			From:         from,
			To:           to,
			Limit:        limit,
			Offset:       offset,
		}
		if admin {
			f.Status = domain.PublishStatus(c.Query("status"))
		}

		events, err := svcs.Catalog.ListEvents(c.Request.Context(), f, admin)
		if err != nil {
			respondErr(c, err)
			return
		}
		if admin {
			c.JSON(http.StatusOK, events)
			return
		}
		writeJSONWithCache(c, http.StatusOK, events, "public, max-age=30", true)
	}
}

// @Summary  Get event
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.Event
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		e, err := svcs.Catalog.GetEvent(ctx, eventID, false)
		if err != nil {
			respondErr(c, err)
			return
		}

		if err := svcs.Analytics.RecordEventView(ctx, eventID); err != nil {
			logger.Warn("record event view", "event_id", eventID, "error", err)
		}

		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60", true)
	}
}

// @Summary  Get event in any status
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.Event
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/events/{id} [get]
func handleAdminGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Catalog.GetEvent(c.Request.Context(), eventID, true)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// @Summary  List ticket types of a published event
// @Param    id  path  int  true  "Event ID"
// @Success  200  {array}   domain.TicketType
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/ticket-types [get]
func handleListTicketTypes(svcs *service.Services) gin.HandlerFunc {
	return listTicketTypes(svcs, false)
}

// @Summary  List all ticket types of an event
// @Param    id  path  int  true  "Event ID"
// @Success  200  {array}   domain.TicketType
// @Router   /admin/events/{id}/ticket-types [get]
func handleAdminListTicketTypes(svcs *service.Services) gin.HandlerFunc {
	return listTicketTypes(svcs, true)
}

func listTicketTypes(svcs *service.Services, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		tts, err := svcs.Catalog.ListTicketTypes(c.Request.Context(), eventID, admin)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, tts)
	}
}

// @Summary  Get availability counters
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  domain.EventCounts
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		cnt, err := svcs.Catalog.Availability(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, cnt, "public, max-age=5", true)
	}
}

// @Summary  List categories
// @Param    kind  query  string  false  "event or content"
// @Success  200  {array}  domain.Category
// @Router   /categories [get]
func handleListCategories(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats, err := svcs.Catalog.ListCategories(c.Request.Context(), domain.CategoryKind(c.Query("kind")))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, cats, "public, max-age=300", true)
	}
}

// @Summary  List organizers
// @Success  200  {array}  domain.Organizer
// @Router   /admin/organizers [get]
func handleListOrganizers(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		out, err := svcs.Catalog.ListOrganizers(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create organizer
// @Param    body  body  CreateOrganizerRequest  true  "organizer"
// @Success  201  {object}  domain.Organizer
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/organizers [post]
func handleCreateOrganizer(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrganizerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		o, err := svcs.Catalog.CreateOrganizer(c.Request.Context(), domain.Organizer{
			Name:    req.Name,
			Slug:    req.Slug,
			Email:   req.Email,
			OwnerID: req.OwnerID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

// @Summary  List venues
// @Success  200  {array}  domain.Venue
// @Router   /admin/venues [get]
func handleListVenues(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		out, err := svcs.Catalog.ListVenues(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create venue
// @Param    body  body  CreateVenueRequest  true  "venue"
// @Success  201  {object}  domain.Venue
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/venues [post]
func handleCreateVenue(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateVenueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		v, err := svcs.Catalog.CreateVenue(c.Request.Context(), domain.Venue{
			Name:     req.Name,
			Address:  req.Address,
			City:     req.City,
			Capacity: req.Capacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

// @Summary  Create category
// @Param    body  body  CreateCategoryRequest  true  "category"
// @Success  201  {object}  domain.Category
// @Router   /admin/categories [post]
func handleCreateCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		cat, err := svcs.Catalog.CreateCategory(c.Request.Context(), domain.Category{
			Name: req.Name,
			Slug: req.Slug,
			Kind: req.Kind,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}

// @Summary  Create event as draft
// @Param    body  body  EventRequest  true  "event"
// @Success  201  {object}  IDResponse
// @Failure  422  {object}  ErrorResponse
// @Router   /admin/events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Catalog.CreateEvent(c.Request.Context(), req.toDomain(0))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  Update event
// @Param    id    path  int           true  "Event ID"
// @Param    body  body  EventRequest  true  "event"
// @Success  204
// @Router   /admin/events/{id} [put]
func handleUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req EventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondErr(c, svcs.Catalog.UpdateEvent(c.Request.Context(), req.toDomain(eventID)))
	}
}

// @Summary  Move event to another status
// @Param    id    path  int            true  "Event ID"
// @Param    body  body  StatusRequest  true  "draft, published or archived"
// @Success  204
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/events/{id}/status [post]
func handleSetEventStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondErr(c, svcs.Catalog.SetEventStatus(c.Request.Context(), eventID, domain.PublishStatus(req.Status)))
	}
}

// @Summary  Delete event without orders
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/events/{id} [delete]
func handleDeleteEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Catalog.DeleteEvent(c.Request.Context(), eventID))
	}
}

// @Summary  Create ticket type
// @Param    id    path  int                true  "Event ID"
// @Param    body  body  TicketTypeRequest  true  "ticket type"
// @Success  201  {object}  IDResponse
// @Router   /admin/events/{id}/ticket-types [post]
func handleCreateTicketType(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req TicketTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Catalog.CreateTicketType(c.Request.Context(), req.toDomain(eventID, 0))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  Update ticket type
// @Param    id      path  int                true  "Event ID"
// @Param    typeID  path  int                true  "Ticket type ID"
// @Param    body    body  TicketTypeRequest  true  "ticket type"
// @Success  204
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/events/{id}/ticket-types/{typeID} [put]
func handleUpdateTicketType(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		typeID, ok := parseInt64Param(c, "typeID")
		if !ok {
			return
		}
		var req TicketTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondErr(c, svcs.Catalog.UpdateTicketType(c.Request.Context(), req.toDomain(eventID, typeID)))
	}
}
