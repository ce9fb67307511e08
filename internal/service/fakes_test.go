package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wetalk/internal/broker"
	"wetalk/internal/domain"
	"wetalk/internal/repository"
	apperrors "wetalk/pkg/errors"
)

type fakeUserRepo struct {
	users map[int64]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// memRoomRepo mirrors the unique (user1_id, user2_id) constraint.
type memRoomRepo struct {
	mu     sync.Mutex
	nextID int64
	byPair map[[2]int64]*domain.Room
	byID   map[int64]*domain.Room
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{byPair: make(map[[2]int64]*domain.Room), byID: make(map[int64]*domain.Room)}
}

func (r *memRoomRepo) ResolveOrCreate(_ context.Context, user1ID, user2ID int64) (*domain.Room, bool, error) {
	if user1ID >= user2ID {
		return nil, false, apperrors.ErrBadRequest
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]int64{user1ID, user2ID}
	if room, ok := r.byPair[key]; ok {
		return room, false, nil
	}
	r.nextID++
	room := &domain.Room{ID: r.nextID, User1ID: user1ID, User2ID: user2ID, CreatedAt: time.Now()}
	r.byPair[key] = room
	r.byID[room.ID] = room
	return room, true, nil
}

func (r *memRoomRepo) GetByID(_ context.Context, id int64) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.byID[id]; ok {
		return room, nil
	}
	return nil, apperrors.ErrRoomNotFound
}

func (r *memRoomRepo) ListByUser(_ context.Context, userID int64) ([]*domain.RoomSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RoomSummary
	for _, room := range r.byID {
		if room.HasParticipant(userID) {
			out = append(out, &domain.RoomSummary{ID: room.ID, CreatedAt: room.CreatedAt})
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*domain.Message
	err      error
}

func (r *fakeMessageRepo) Append(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	msg.ID = int64(len(r.messages) + 1)
	msg.Timestamp = time.Now()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeMessageRepo) Recent(_ context.Context, roomID int64, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakePresenceRepo struct {
	mu      sync.Mutex
	records map[string]time.Time
	err     error
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{records: make(map[string]time.Time)}
}

func presenceKey(userID int64, channel string) string {
	return fmt.Sprintf("%s/%d", channel, userID)
}

func (r *fakePresenceRepo) Touch(_ context.Context, rec domain.PresenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records[presenceKey(rec.UserID, rec.Channel)] = rec.LastActive
	return nil
}

func (r *fakePresenceRepo) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for k, at := range r.records {
		if at.Before(cutoff) {
			delete(r.records, k)
			removed++
		}
	}
	return removed, nil
}

type fakeRateLimitRepo struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func (r *fakeRateLimitRepo) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, nil
}

func (r *fakeRateLimitRepo) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return r.AllowFunc(ctx, key, limit, window)
}

type fakeNotifier struct {
	mu        sync.Mutex
	announced []*domain.Message
	err       error
}

func (n *fakeNotifier) MessagePersisted(_ context.Context, msg *domain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.announced = append(n.announced, msg)
	return n.err
}

// failingBroker fails every publish.
type failingBroker struct {
	broker.Broker
	err error
}

func (b failingBroker) Publish(context.Context, string, domain.Event) error {
	return b.err
}
