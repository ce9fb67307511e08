package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wetalk/internal/domain"
	"wetalk/internal/metrics"
	"wetalk/internal/repository"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

type ChatService interface {
	// Send appends text to the room log and announces it to the room.
	Send(ctx context.Context, room *domain.Room, sender *domain.User, text string) (*domain.Message, error)
	// Recent returns the newest limit messages, oldest first. limit <= 0
	// returns the whole history.
	Recent(ctx context.Context, roomID int64, limit int) ([]*domain.Message, error)
}

type chatService struct {
	messageRepo repository.MessageRepository
	presence    PresenceService
	notifier    Notifier
	log         logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, presence PresenceService, notifier Notifier, log logger.Logger) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		presence:    presence,
		notifier:    notifier,
		log:         log,
	}
}

func (s *chatService) Send(ctx context.Context, room *domain.Room, sender *domain.User, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyPayload
	}

	if !room.HasParticipant(sender.ID) {
		return nil, apperrors.ErrNotParticipant
	}

	msg := &domain.Message{
		RoomID:         room.ID,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Text:           text,
	}

	if err := s.messageRepo.Append(ctx, msg); err != nil {
		if !errors.Is(err, apperrors.ErrTransientStore) {
			err = fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
		}
		return nil, err
	}
	metrics.MessagesPersisted.Inc()

	// Сообщение уже сохранено: дальше ошибки только логируются
	after := context.WithoutCancel(ctx)

	if err := s.presence.Touch(after, sender.ID, room.GroupName()); err != nil {
		s.log.Warn("Failed to touch presence", "error", err, "user_id", sender.ID, "room_id", room.ID)
	}

	if err := s.notifier.MessagePersisted(after, msg); err != nil {
		s.log.Error("Message stored but not broadcast", "error", err, "message_id", msg.ID, "room_id", room.ID)
	}

	return msg, nil
}

func (s *chatService) Recent(ctx context.Context, roomID int64, limit int) ([]*domain.Message, error) {
	return s.messageRepo.Recent(ctx, roomID, limit)
}
