package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"wetalk/pkg/logger"
)

// DBTX is the subset of *pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Repositories struct {
	User      UserRepository
	Room      RoomRepository
	Message   MessageRepository
	Presence  PresenceRepository
	RateLimit RateLimitRepository
}

func NewRepositories(db DBTX, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db, log),
		Room:      NewRoomRepository(db, log),
		Message:   NewMessageRepository(db, log),
		Presence:  NewPresenceRepository(db, log),
		RateLimit: NewRateLimitRepository(redis, log),
	}
}
