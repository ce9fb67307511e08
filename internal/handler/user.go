package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"wetalk/internal/middleware"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

// UserHandler exposes the authenticated caller. Accounts themselves are
// managed elsewhere.
type UserHandler struct {
	log logger.Logger
}

func NewUserHandler(log logger.Logger) *UserHandler {
	return &UserHandler{log: log}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperrors.ErrUnauthenticated)
		return
	}

	c.JSON(http.StatusOK, user)
}
