package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"wetalk/pkg/logger"
)

type healthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]healthCheck
	log    logger.Logger
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *HealthHandler {
	checks := make(map[string]healthCheck)
	if db != nil {
		checks["postgres"] = db.Ping
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return &HealthHandler{checks: checks, log: log}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			// Адреса и хосты из ошибки наружу не отдаём
			h.log.Warn("Health check failed", "dependency", name, "error", err)
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"service":      "wetalk",
		"dependencies": deps,
	})
}
