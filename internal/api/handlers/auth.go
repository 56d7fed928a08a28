package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scaf-dev/scaf/internal/auth"
)

// Login godoc
// @Summary Log in with username and password (local mode)
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body auth.LoginRequest true "Credentials"
// @Success 200 {object} auth.LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func Login(a *auth.LocalAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		resp, err := a.Login(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// OIDCLogin godoc
// @Summary Redirect to the identity provider's login page
// @Tags auth
// @Success 302
// @Router /auth/oidc/login [get]
func OIDCLogin(a *auth.OIDCAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := uuid.NewString()
		c.SetCookie("oidc_state", state, 300, "/", "", false, true)
		c.Redirect(http.StatusFound, a.AuthURL(state))
	}
}

// OIDCCallback godoc
// @Summary OAuth2 callback; exchanges the code for a Scaf token
// @Tags auth
// @Produce json
// @Success 200 {object} auth.LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/oidc/callback [get]
func OIDCCallback(a *auth.OIDCAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := c.Cookie("oidc_state")
		if err != nil || state == "" || state != c.Query("state") {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "state mismatch"})
			return
		}

		resp, err := a.HandleCallback(c.Request.Context(), c.Query("code"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication failed"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
