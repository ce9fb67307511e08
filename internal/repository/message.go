package repository

import (
	"context"
	"fmt"
	"math"

	"wetalk/internal/domain"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

type MessageRepository interface {
	// Append stores the message and fills in its ID, Timestamp and IsRead.
	Append(ctx context.Context, msg *domain.Message) error
	// Recent returns up to limit newest messages of the room, oldest first.
	// limit <= 0 means the whole history.
	Recent(ctx context.Context, roomID int64, limit int) ([]*domain.Message, error)
}

type messageRepository struct {
	db  DBTX
	log logger.Logger
}

func NewMessageRepository(db DBTX, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (chat_room_id, sender_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, time_stamp, is_read
	`

	err := r.db.QueryRow(ctx, query, msg.RoomID, msg.SenderID, msg.Text).Scan(
		&msg.ID, &msg.Timestamp, &msg.IsRead,
	)
	if err != nil {
		r.log.Error("Failed to append message", "error", err, "room_id", msg.RoomID)
		return fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}

	return nil
}

func (r *messageRepository) Recent(ctx context.Context, roomID int64, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}

	query := `
		SELECT m.id, m.chat_room_id, m.sender_id, u.username, m.text, m.time_stamp, m.is_read
		FROM (
			SELECT id, chat_room_id, sender_id, text, time_stamp, is_read
			FROM messages
			WHERE chat_room_id = $1
			ORDER BY time_stamp DESC, id DESC
			LIMIT $2
		) m
		JOIN users u ON u.id = m.sender_id
		ORDER BY m.time_stamp ASC, m.id ASC
	`

	rows, err := r.db.Query(ctx, query, roomID, limit)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err, "room_id", roomID)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		msg := &domain.Message{}
		err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.SenderUsername, &msg.Text, &msg.Timestamp, &msg.IsRead)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
	}

	return messages, nil
}
