package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"wetalk/internal/domain"
	"wetalk/internal/service"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

const (
	AccessCookieName  = "access"
	RefreshCookieName = "refresh"

	contextUserKey = "user"
)

type AuthMiddleware struct {
	authService service.AuthService
	log         logger.Logger
}

func NewAuthMiddleware(authService service.AuthService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		log:         log,
	}
}

// AccessToken extracts the access token: the access cookie first, then an
// "Authorization: Bearer" header.
func AccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.authService.Authenticate(c.Request.Context(), AccessToken(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.NewAPIError(apperrors.ErrUnauthenticated.Error(), http.StatusUnauthorized))
			return
		}

		c.Set(contextUserKey, user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}
