package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/service"
)

// @Summary  List published pages
// @Param    kind      query  string  false  "blog, magazine or page"
// @Param    category  query  string  false  "category slug"
// @Success  200  {array}  domain.Page
// @Router   /content [get]
func handleListContent(svcs *service.Services) gin.HandlerFunc {
	return listContent(svcs, false)
}

// @Summary  List pages in any status
// @Param    status  query  string  false  "draft, published or archived"
// @Success  200  {array}  domain.Page
// @Router   /admin/content [get]
func handleAdminListContent(svcs *service.Services) gin.HandlerFunc {
	return listContent(svcs, true)
}

func listContent(svcs *service.Services, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		f := domain.PageFilter{
			Kind:         domain.PageKind(c.Query("kind")),
			CategorySlug: c.Query("category"),
			Limit:        limit,
			Offset:       offset,
		}
		if admin {
			f.Status = domain.PublishStatus(c.Query("status"))
		}
		out, err := svcs.Content.List(c.Request.Context(), f, admin)
		if err != nil {
			respondErr(c, err)
			return
		}
		if admin {
			c.JSON(http.StatusOK, out)
			return
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Get a published page by slug
// @Param    slug  path  string  true  "slug"
// @Success  200  {object}  domain.Page
// @Failure  404  {object}  ErrorResponse
// @Router   /content/{slug} [get]
func handleGetContent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svcs.Content.GetPublished(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, p, "public, max-age=60", true)
	}
}

// @Summary  Get a page in any status
// @Param    id  path  int  true  "Page ID"
// @Success  200  {object}  domain.Page
// @Router   /admin/content/{id} [get]
func handleAdminGetPage(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Content.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Create a draft page
// @Param    body  body  PageRequest  true  "page"
// @Success  201  {object}  IDResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/content [post]
func handleCreatePage(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Content.Create(c.Request.Context(), mustProfile(c).ID, req.toDomain(0))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  Update a page
// @Param    id    path  int          true  "Page ID"
// @Param    body  body  PageRequest  true  "page"
// @Success  204
// @Router   /admin/content/{id} [put]
func handleUpdatePage(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req PageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondErr(c, svcs.Content.Update(c.Request.Context(), req.toDomain(id)))
	}
}

// @Summary  Publish, archive or redraft a page
// @Param    id    path  int            true  "Page ID"
// @Param    body  body  StatusRequest  true  "status"
// @Success  204
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/content/{id}/status [post]
func handleSetPageStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondErr(c, svcs.Content.SetStatus(c.Request.Context(), id, domain.PublishStatus(req.Status)))
	}
}

// @Summary  Delete a page
// @Param    id  path  int  true  "Page ID"
// @Success  204
// @Router   /admin/content/{id} [delete]
func handleDeletePage(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Content.Delete(c.Request.Context(), id))
	}
}

// @Summary  Follow a vanity URL
// @Param    path  path  string  true  "vanity path"
// @Success  302
// @Failure  404  {object}  ErrorResponse
// @Router   /go/{path} [get]
func handleResolveVanity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := svcs.Vanity.Resolve(c.Request.Context(), c.Param("path"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Redirect(http.StatusFound, target)
	}
}

// @Summary  Request a vanity URL
// @Param    body  body  VanityRequest  true  "path and target"
// @Success  201  {object}  domain.VanityURL
// @Failure  409  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /vanity [post]
func handleRequestVanity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VanityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		v, err := svcs.Vanity.Request(c.Request.Context(), mustProfile(c).ID, req.Path, req.TargetURL)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

// @Summary  Vanity URL review queue
// @Param    status  query  string  false  "pending, approved or rejected"
// @Success  200  {array}  domain.VanityURL
// @Router   /admin/vanity [get]
func handleListVanity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		out, err := svcs.Vanity.List(c.Request.Context(), domain.VanityStatus(c.Query("status")), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Approve or reject a vanity URL
// @Param    id    path  int            true   "Vanity URL ID"
// @Param    body  body  ReviewRequest  false  "note"
// @Success  200  {object}  domain.VanityURL
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/vanity/{id}/approve [post]
// @Router   /admin/vanity/{id}/reject [post]
func handleReviewVanity(svcs *service.Services, approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ReviewRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		review := svcs.Vanity.Reject
		if approve {
			review = svcs.Vanity.Approve
		}
		v, err := review(c.Request.Context(), mustProfile(c).ID, id, req.Note)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// @Summary  Delete a vanity URL
// @Param    id  path  int  true  "Vanity URL ID"
// @Success  204
// @Router   /admin/vanity/{id} [delete]
func handleDeleteVanity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Vanity.Delete(c.Request.Context(), id))
	}
}

// @Summary  Get a site setting
// @Param    key  path  string  true  "setting key"
// @Success  200  {object}  domain.Setting
// @Failure  404  {object}  ErrorResponse
// @Router   /settings/{key} [get]
func handleGetSetting(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := svcs.Settings.Get(c.Request.Context(), c.Param("key"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, s, "public, max-age=60", true)
	}
}

// @Summary  List site settings
// @Success  200  {array}  domain.Setting
// @Router   /admin/settings [get]
func handleListSettings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Settings.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Store a site setting
// @Param    key   path  string          true  "setting key"
// @Param    body  body  SettingRequest  true  "JSON value"
// @Success  200  {object}  domain.Setting
// @Router   /admin/settings/{key} [put]
func handlePutSetting(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SettingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		s, err := svcs.Settings.Put(c.Request.Context(), c.Param("key"), req.Value)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// @Summary  Delete a site setting
// @Param    key  path  string  true  "setting key"
// @Success  204
// @Router   /admin/settings/{key} [delete]
func handleDeleteSetting(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondErr(c, svcs.Settings.Delete(c.Request.Context(), c.Param("key")))
	}
}
