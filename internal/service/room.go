package service

import (
	"context"
	"errors"

	"wetalk/internal/domain"
	"wetalk/internal/repository"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

type RoomService interface {
	// ResolveOrCreate returns the single room shared by a and b, in either order.
	ResolveOrCreate(ctx context.Context, a, b int64) (*domain.Room, error)
	OpenWith(ctx context.Context, me *domain.User, counterpartUsername string) (*OpenedRoom, error)
	ListForUser(ctx context.Context, userID int64) ([]*domain.RoomSummary, error)
	GetForParticipant(ctx context.Context, roomID, userID int64) (*domain.Room, error)
}

// OpenedRoom is the outcome of opening a conversation with another user.
type OpenedRoom struct {
	Room        *domain.Room
	Counterpart *domain.User
	Created     bool
}

type roomService struct {
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewRoomService(roomRepo repository.RoomRepository, userRepo repository.UserRepository, log logger.Logger) RoomService {
	return &roomService{
		roomRepo: roomRepo,
		userRepo: userRepo,
		log:      log,
	}
}

func (s *roomService) ResolveOrCreate(ctx context.Context, a, b int64) (*domain.Room, error) {
	room, _, err := s.resolve(ctx, a, b)
	return room, err
}

func (s *roomService) resolve(ctx context.Context, a, b int64) (*domain.Room, bool, error) {
	if a == b {
		return nil, false, apperrors.ErrSelfChat
	}

	user1, user2 := domain.CanonicalPair(a, b)
	room, created, err := s.roomRepo.ResolveOrCreate(ctx, user1, user2)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.log.Info("Chat room created", "room_id", room.ID, "user1_id", user1, "user2_id", user2)
	}

	return room, created, nil
}

func (s *roomService) OpenWith(ctx context.Context, me *domain.User, counterpartUsername string) (*OpenedRoom, error) {
	counterpart, err := s.userRepo.GetByUsername(ctx, counterpartUsername)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnknownCounterpart
		}
		return nil, err
	}

	room, created, err := s.resolve(ctx, me.ID, counterpart.ID)
	if err != nil {
		return nil, err
	}

	return &OpenedRoom{Room: room, Counterpart: counterpart, Created: created}, nil
}

func (s *roomService) ListForUser(ctx context.Context, userID int64) ([]*domain.RoomSummary, error) {
	rooms, err := s.roomRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []*domain.RoomSummary{}
	}
	return rooms, nil
}

func (s *roomService) GetForParticipant(ctx context.Context, roomID, userID int64) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.HasParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}

	return room, nil
}
