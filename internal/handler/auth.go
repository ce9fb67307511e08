package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"wetalk/internal/config"
	"wetalk/internal/middleware"
	"wetalk/internal/service"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

type AuthHandler struct {
	authService service.AuthService
	jwtCfg      config.JWTConfig
	cookieCfg   config.CookieConfig
	log         logger.Logger
}

func NewAuthHandler(authService service.AuthService, jwtCfg config.JWTConfig, cookieCfg config.CookieConfig, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtCfg:      jwtCfg,
		cookieCfg:   cookieCfg,
		log:         log,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.ErrBadRequest)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			h.log.Warn("Login failed", "username", req.Username)
		}
		fail(c, err)
		return
	}

	h.setTokenCookies(c, resp.AccessToken, resp.RefreshToken)
	c.JSON(http.StatusOK, resp)
}

// Refresh issues a new token pair. The refresh token comes from the refresh
// cookie or, failing that, the request body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := ""
	if cookie, err := c.Request.Cookie(middleware.RefreshCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req RefreshTokenRequest
		_ = c.ShouldBindJSON(&req)
		token = req.RefreshToken
	}
	if token == "" {
		fail(c, apperrors.ErrInvalidToken)
		return
	}

	resp, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		fail(c, err)
		return
	}

	h.setTokenCookies(c, resp.AccessToken, resp.RefreshToken)
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearCookie(c, middleware.AccessCookieName)
	h.clearCookie(c, middleware.RefreshCookieName)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, access, refresh string) {
	h.setCookie(c, middleware.AccessCookieName, access, int(h.jwtCfg.AccessTTL.Seconds()))
	h.setCookie(c, middleware.RefreshCookieName, refresh, int(h.jwtCfg.RefreshTTL.Seconds()))
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	h.setCookie(c, name, "", -1)
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookieCfg.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookieCfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
