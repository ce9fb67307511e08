package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"wetalk/internal/domain"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

type RoomRepository interface {
	// ResolveOrCreate returns the room of the ordered pair, creating it if
	// needed. created reports whether this call inserted the row.
	ResolveOrCreate(ctx context.Context, user1ID, user2ID int64) (room *domain.Room, created bool, err error)
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.RoomSummary, error)
}

type roomRepository struct {
	db  DBTX
	log logger.Logger
}

func NewRoomRepository(db DBTX, log logger.Logger) RoomRepository {
	return &roomRepository{db: db, log: log}
}

func (r *roomRepository) ResolveOrCreate(ctx context.Context, user1ID, user2ID int64) (*domain.Room, bool, error) {
	if user1ID >= user2ID {
		return nil, false, fmt.Errorf("%w: room pair must be ordered", apperrors.ErrBadRequest)
	}

	// Конфликт по уникальной паре превращается в no-op update, чтобы
	// RETURNING отдал уже существующую строку в той же операции.
	query := `
		INSERT INTO chat_rooms (user1_id, user2_id)
		VALUES ($1, $2)
		ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
		RETURNING id, user1_id, user2_id, created_at, (xmax = 0) AS created
	`

	room := &domain.Room{}
	var created bool
	err := r.db.QueryRow(ctx, query, user1ID, user2ID).Scan(
		&room.ID, &room.User1ID, &room.User2ID, &room.CreatedAt, &created,
	)
	if err != nil {
		r.log.Error("Failed to resolve room", "error", err, "user1_id", user1ID, "user2_id", user2ID)
		return nil, false, fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}

	return room, created, nil
}

func (r *roomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	query := `SELECT id, user1_id, user2_id, created_at FROM chat_rooms WHERE id = $1`

	room := &domain.Room{}
	err := r.db.QueryRow(ctx, query, id).Scan(&room.ID, &room.User1ID, &room.User2ID, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoomNotFound
		}
		r.log.Error("Failed to get room by ID", "error", err, "room_id", id)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}

	return room, nil
}

func (r *roomRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.RoomSummary, error) {
	query := `
		SELECT r.id, r.created_at, u.id, u.username, u.email, u.is_active, u.created_at
		FROM chat_rooms r
		JOIN users u ON u.id = CASE WHEN r.user1_id = $1 THEN r.user2_id ELSE r.user1_id END
		WHERE r.user1_id = $1 OR r.user2_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to list rooms", "error", err, "user_id", userID)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}
	defer rows.Close()

	var rooms []*domain.RoomSummary
	for rows.Next() {
		summary := &domain.RoomSummary{Counterpart: &domain.User{}}
		err := rows.Scan(
			&summary.ID, &summary.CreatedAt,
			&summary.Counterpart.ID, &summary.Counterpart.Username, &summary.Counterpart.Email,
			&summary.Counterpart.IsActive, &summary.Counterpart.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan room", "error", err)
			return nil, err
		}
		rooms = append(rooms, summary)
	}

	return rooms, rows.Err()
}
