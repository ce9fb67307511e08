package middleware

import (
	"github.com/gin-gonic/gin"
	"wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем есть ли ошибки
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		statusCode := errors.HTTPStatusFromError(err)
		if statusCode >= 500 {
			log.Error("Request failed", "error", err, "path", c.FullPath())
		}

		c.JSON(statusCode, errors.NewAPIError(errors.PublicMessage(err), statusCode))
	}
}
