package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"wetalk/internal/config"
	"wetalk/internal/middleware"
	"wetalk/pkg/logger"
)

const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

func SetupRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Chat.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", rateLimitMiddleware.Limit("login", loginRateLimit, loginRateWindow), handlers.Auth.Login)
			auth.POST("/refresh", handlers.Auth.Refresh)
			auth.POST("/logout", handlers.Auth.Logout)
		}

		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			protected.GET("/users/me", handlers.User.GetMe)

			rooms := protected.Group("/rooms")
			{
				rooms.GET("", handlers.Room.List)
				rooms.POST("", handlers.Room.Open)
				rooms.GET("/:id", handlers.Room.GetByID)
				rooms.GET("/:id/messages", handlers.Chat.GetMessages)
				rooms.POST("/:id/messages", handlers.Chat.SendMessage)
			}
		}
	}

	// Аутентификация по cookie выполняется внутри, до апгрейда
	router.GET("/ws/chat/:username", handlers.WebSocket.HandleChat)

	return router
}
