package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/service"
	"github.com/kirinyoku/eventhub/internal/service/ads"
)

// @Summary  Serve an ad for a zone
// @Param    key  path  string  true  "zone key"
// @Success  200  {object}  domain.Ad
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /ads/zones/{key} [get]
func handleServeAd(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ad, err := svcs.Ads.Serve(c.Request.Context(), c.Param("key"))
		if errors.Is(err, ads.ErrNoAd) {
			c.Status(http.StatusNoContent)
			return
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, ad)
	}
}

// @Summary  Follow an ad
// @Param    id  path  int  true  "Ad ID"
// @Success  302
// @Failure  404  {object}  ErrorResponse
// @Router   /ads/{id}/click [get]
func handleAdClick(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		target, err := svcs.Ads.Click(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Redirect(http.StatusFound, target)
	}
}

// @Summary  List ad zones
// @Success  200  {array}  domain.AdZone
// @Router   /admin/ad-zones [get]
func handleListAdZones(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Ads.ListZones(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create ad zone
// @Param    body  body  AdZoneRequest  true  "zone"
// @Success  201  {object}  IDResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/ad-zones [post]
func handleCreateAdZone(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdZoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Ads.CreateZone(c.Request.Context(), domain.AdZone{
			Key:    req.Key,
			Name:   req.Name,
			Width:  req.Width,
			Height: req.Height,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  List ads of a zone with their counters
// @Param    id  path  int  true  "Zone ID"
// @Success  200  {array}  domain.Ad
// @Router   /admin/ad-zones/{id}/ads [get]
func handleListAds(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		zoneID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Ads.ListAds(c.Request.Context(), zoneID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Create ad
// @Param    body  body  AdRequest  true  "ad"
// @Success  201  {object}  IDResponse
// @Router   /admin/ads [post]
func handleCreateAd(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Ads.CreateAd(c.Request.Context(), req.toDomain(0))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, IDResponse{ID: id})
	}
}

// @Summary  Update ad
// @Param    id    path  int        true  "Ad ID"
// @Param    body  body  AdRequest  true  "ad"
// @Success  204
// @Router   /admin/ads/{id} [put]
func handleUpdateAd(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req AdRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondErr(c, svcs.Ads.UpdateAd(c.Request.Context(), req.toDomain(id)))
	}
}

// @Summary  Pause or resume an ad
// @Param    id    path  int            true  "Ad ID"
// @Param    body  body  StatusRequest  true  "active or paused"
// @Success  204
// @Router   /admin/ads/{id}/status [post]
func handleSetAdStatus(svcs *service.Services) gin.HandlerFunc {
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
		respondErr(c, svcs.Ads.SetAdStatus(c.Request.Context(), id, domain.AdStatus(req.Status)))
	}
}

// @Summary  Delete ad
// @Param    id  path  int  true  "Ad ID"
// @Success  204
// @Router   /admin/ads/{id} [delete]
func handleDeleteAd(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Ads.DeleteAd(c.Request.Context(), id))
	}
}
