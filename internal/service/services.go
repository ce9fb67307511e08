package service

import (
	"wetalk/internal/broker"
	"wetalk/internal/config"
	"wetalk/internal/repository"
	"wetalk/pkg/logger"
)

type Services struct {
	Auth      AuthService
	Room      RoomService
	Chat      ChatService
	Presence  PresenceService
	Notifier  Notifier
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, b broker.Broker, cfg *config.Config, log logger.Logger) (*Services, error) {
	notifier, err := NewNotifier(b, cfg.Broker.DedupSize, log)
	if err != nil {
		return nil, err
	}

	presence := NewPresenceService(repos.Presence, log)

	return &Services{
		Auth:      NewAuthService(repos.User, cfg.JWT, log),
		Room:      NewRoomService(repos.Room, repos.User, log),
		Chat:      NewChatService(repos.Message, presence, notifier, log),
		Presence:  presence,
		Notifier:  notifier,
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}, nil
}
