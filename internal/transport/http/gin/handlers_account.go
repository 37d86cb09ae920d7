package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/service"
	"github.com/kirinyoku/eventhub/internal/service/auth"
)

func clientOf(c *gin.Context) auth.Client {
	return auth.Client{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// @Summary  Sign up
// @Param    body  body  SignUpRequest  true  "account"
// @Success  201  {object}  domain.Profile
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /auth/signup [post]
func handleSignUp(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignUpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svcs.Auth.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName, req.ReferralCode)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// @Summary  Log in
// @Param    body  body  LoginRequest  true  "credentials"
// @Success  200  {object}  LoginResponse
// @Failure  401  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse
// @Router   /auth/login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		token, p, err := svcs.Auth.Login(c.Request.Context(), req.Email, req.Password, clientOf(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, LoginResponse{
			Token:     token,
			ExpiresIn: int64(svcs.Auth.SessionTTL().Seconds()),
			Profile:   p,
		})
	}
}

// @Summary  Log out
// @Success  204
// @Security BearerAuth
// @Router   /auth/logout [post]
func handleLogout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString(ctxToken)
		respondErr(c, svcs.Auth.Logout(c.Request.Context(), mustProfile(c).ID, token, clientOf(c)))
	}
}

// @Summary  Get my profile
// @Success  200  {object}  domain.Profile
// @Security BearerAuth
// @Router   /me [get]
func handleGetMe(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svcs.Profiles.Get(c.Request.Context(), mustProfile(c).ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Update my profile
// @Param    body  body  UpdateMeRequest  true  "profile"
// @Success  200  {object}  domain.Profile
// @Security BearerAuth
// @Router   /me [patch]
func handleUpdateMe(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateMeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svcs.Profiles.UpdateMe(c.Request.Context(), mustProfile(c).ID, req.DisplayName)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Change my password
// @Param    body  body  ChangePasswordRequest  true  "passwords"
// @Success  204
// @Failure  401  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /me/password [post]
func handleChangePassword(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondErr(c, svcs.Auth.ChangePassword(
			c.Request.Context(),
			mustProfile(c).ID,
			req.OldPassword,
			req.NewPassword,
			clientOf(c),
		))
	}
}

// @Summary  My recent security events
// @Param    limit  query  int  false  "page size"
// @Success  200  {array}  domain.SecurityEvent
// @Security BearerAuth
// @Router   /me/security-activity [get]
func handleSecurityActivity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := pageParams(c)
		out, err := svcs.Profiles.ListSecurityActivity(c.Request.Context(), mustProfile(c).ID, limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  List my payment methods
// @Success  200  {array}  domain.PaymentMethod
// @Security BearerAuth
// @Router   /me/payment-methods [get]
func handleListPaymentMethods(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Profiles.ListPaymentMethods(c.Request.Context(), mustProfile(c).ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Add a payment method
// @Param    body  body  PaymentMethodRequest  true  "card"
// @Success  201  {object}  domain.PaymentMethod
// @Failure  422  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /me/payment-methods [post]
func handleAddPaymentMethod(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentMethodRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		m, err := svcs.Profiles.AddPaymentMethod(c.Request.Context(), mustProfile(c).ID, domain.PaymentMethod{
			Brand:       req.Brand,
			Last4:       req.Last4,
			ExpMonth:    req.ExpMonth,
			ExpYear:     req.ExpYear,
			ProviderRef: req.ProviderRef,
			IsDefault:   req.IsDefault,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

// @Summary  Remove a payment method
// @Param    id  path  int  true  "Payment method ID"
// @Success  204
// @Security BearerAuth
// @Router   /me/payment-methods/{id} [delete]
func handleDeletePaymentMethod(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Profiles.DeletePaymentMethod(c.Request.Context(), mustProfile(c).ID, id))
	}
}

// @Summary  Make a payment method the default
// @Param    id  path  int  true  "Payment method ID"
// @Success  204
// @Security BearerAuth
// @Router   /me/payment-methods/{id}/default [post]
func handleSetDefaultPaymentMethod(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Profiles.SetDefaultPaymentMethod(c.Request.Context(), mustProfile(c).ID, id))
	}
}

// @Summary  List my saved events
// @Success  200  {array}  domain.SavedEvent
// @Security BearerAuth
// @Router   /me/saved-events [get]
func handleListSavedEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Favorites.List(c.Request.Context(), mustProfile(c).ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Save an event
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /me/saved-events/{id} [put]
func handleSaveEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Favorites.Save(c.Request.Context(), mustProfile(c).ID, eventID))
	}
}

// @Summary  Unsave an event
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Security BearerAuth
// @Router   /me/saved-events/{id} [delete]
func handleUnsaveEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Favorites.Unsave(c.Request.Context(), mustProfile(c).ID, eventID))
	}
}

// @Summary  Search profiles
// @Param    q  query  string  false  "email or name"
// @Success  200  {array}  domain.Profile
// @Router   /admin/profiles [get]
func handleListProfiles(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		out, err := svcs.Profiles.List(c.Request.Context(), c.Query("q"), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Change a profile's role
// @Param    id    path  int             true  "Profile ID"
// @Param    body  body  SetRoleRequest  true  "user or admin"
// @Success  204
// @Router   /admin/profiles/{id}/role [put]
func handleSetRole(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req SetRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		respondErr(c, svcs.Profiles.SetRole(
			c.Request.Context(),
			id,
			domain.Role(req.Role),
			c.ClientIP(),
			c.Request.UserAgent(),
		))
	}
}
