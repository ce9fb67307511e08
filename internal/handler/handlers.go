package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"wetalk/internal/broker"
	"wetalk/internal/config"
	"wetalk/internal/service"
	"wetalk/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Room      *RoomHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, b broker.Broker, db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(db, rdb, log),
		Auth:      NewAuthHandler(services.Auth, cfg.JWT, cfg.Cookie, log),
		User:      NewUserHandler(log),
		Room:      NewRoomHandler(services.Room, log),
		Chat:      NewChatHandler(services.Room, services.Chat, cfg.Chat, log),
		WebSocket: NewWebSocketHandler(services, b, cfg.Chat, log),
	}
}

// fail hands err to the ErrorHandler middleware and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
