package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"wetalk/internal/broker"
	"wetalk/internal/config"
	"wetalk/internal/handler"
	"wetalk/internal/middleware"
	"wetalk/internal/repository"
	"wetalk/internal/scheduler"
	"wetalk/internal/service"
	"wetalk/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	var appLogger logger.Logger
	if cfg.IsProduction() {
		appLogger = logger.New(cfg.Log.Level)
	} else {
		appLogger = logger.NewConsole(cfg.Log.Level)
	}

	// Подключение к PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Invalid database DSN", "error", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	if err := repository.Migrate(context.Background(), dbPool); err != nil {
		appLogger.Fatal("Failed to migrate database", "error", err)
	}

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// Канал рассылки событий комнат
	var eventBroker broker.Broker
	switch cfg.Broker.Driver {
	case config.BrokerDriverMemory:
		eventBroker = broker.NewMemoryBroker()
		appLogger.Warn("Using in-memory broker, events are not shared between instances")
	default:
		eventBroker = broker.NewRedisBroker(rdb, cfg.Broker.ChannelPrefix, appLogger)
	}

	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	services, err := service.NewServices(repos, eventBroker, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize services", "error", err)
	}

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, eventBroker, dbPool, rdb, cfg, appLogger)
	router := handler.SetupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Очистка устаревших записей присутствия
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	sweeper := scheduler.NewCrontab(services.Presence, rdb, cfg.Presence, appLogger)
	go func() {
		if err := sweeper.Run(schedCtx); err != nil {
			appLogger.Error("Scheduler stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "broker", cfg.Broker.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server.
	handlers.WebSocket.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	stopScheduler()
	if err := eventBroker.Close(); err != nil {
		appLogger.Warn("Failed to close broker", "error", err)
	}

	appLogger.Info("Server exited")
}
