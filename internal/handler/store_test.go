package handler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"wetalk/internal/broker"
	"wetalk/internal/config"
	"wetalk/internal/domain"
	"wetalk/internal/middleware"
	"wetalk/internal/repository"
	"wetalk/internal/service"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/jwt"
	"wetalk/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "s3cret"

type memUsers struct {
	byID map[int64]*domain.User
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type memRooms struct {
	mu     sync.Mutex
	users  *memUsers
	nextID int64
	rooms  map[int64]*domain.Room
}

func (r *memRooms) ResolveOrCreate(_ context.Context, user1ID, user2ID int64) (*domain.Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.User1ID == user1ID && room.User2ID == user2ID {
			return room, false, nil
		}
	}
	r.nextID++
	room := &domain.Room{ID: r.nextID, User1ID: user1ID, User2ID: user2ID, CreatedAt: time.Now()}
	r.rooms[room.ID] = room
	return room, true, nil
}

func (r *memRooms) GetByID(_ context.Context, id int64) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[id]; ok {
		return room, nil
	}
	return nil, apperrors.ErrRoomNotFound
}

func (r *memRooms) ListByUser(_ context.Context, userID int64) ([]*domain.RoomSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RoomSummary
	for _, room := range r.rooms {
		if room.HasParticipant(userID) {
			other := room.User1ID
			if other == userID {
				other = room.User2ID
			}
			out = append(out, &domain.RoomSummary{
				ID:          room.ID,
				Counterpart: r.users.byID[other],
				CreatedAt:   room.CreatedAt,
			})
		}
	}
	return out, nil
}

type memMessages struct {
	mu       sync.Mutex
	messages []*domain.Message
	failing  atomic.Bool
}

func (r *memMessages) Append(_ context.Context, msg *domain.Message) error {
	if r.failing.Load() {
		return errors.New("connection reset by peer")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = int64(len(r.messages) + 1)
	msg.Timestamp = time.Now().UTC()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memMessages) Recent(_ context.Context, roomID int64, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Message, 0)
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

func (r *memMessages) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// memPresence records touches. While failing is set every touch errors.
type memPresence struct {
	mu      sync.Mutex
	touches []domain.PresenceRecord
	failing atomic.Bool
}

func (r *memPresence) Touch(_ context.Context, rec domain.PresenceRecord) error {
	if r.failing.Load() {
		return errors.New("presence store down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touches = append(r.touches, rec)
	return nil
}

func (r *memPresence) DeleteStale(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *memPresence) touched(userID int64, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.touches {
		if rec.UserID == userID && rec.Channel == channel {
			return true
		}
	}
	return false
}

type memRateLimit struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (r *memRateLimit) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key]++
	return r.counts[key], nil
}

func (r *memRateLimit) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := r.Increment(ctx, key, window)
	return n <= int64(limit), err
}

// trackingBroker counts live subscriptions.
type trackingBroker struct {
	broker.Broker
	active int32
}

func (b *trackingBroker) Subscribe(ctx context.Context, group string, sub broker.Subscriber) error {
	if err := b.Broker.Subscribe(ctx, group, sub); err != nil {
		return err
	}
	atomic.AddInt32(&b.active, 1)
	return nil
}

func (b *trackingBroker) Unsubscribe(ctx context.Context, group string, sub broker.Subscriber) error {
	atomic.AddInt32(&b.active, -1)
	return b.Broker.Unsubscribe(ctx, group, sub)
}

func (b *trackingBroker) subscriptions() int32 {
	return atomic.LoadInt32(&b.active)
}

type testEnv struct {
	cfg      *config.Config
	users    map[string]*domain.User
	messages *memMessages
	presence *memPresence
	broker   *trackingBroker
	services *service.Services
	router   *gin.Engine
	handlers *Handlers
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     time.Hour,
			RefreshTTL:    24 * time.Hour,
			Issuer:        "wetalk",
		},
		Chat: config.ChatConfig{
			HistoryLimit:    0,
			MaxMessageBytes: 8192,
			RateLimit:       100,
			RateWindow:      time.Minute,
			SendBuffer:      64,
			PongWait:        5 * time.Second,
			WriteWait:       2 * time.Second,
		},
		Broker: config.BrokerConfig{Driver: config.BrokerDriverMemory, DedupSize: 128},
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	users := &memUsers{byID: make(map[int64]*domain.User)}
	byName := make(map[string]*domain.User)
	for i, name := range []string{"alice", "bob", "carol", "dave"} {
		u := &domain.User{ID: int64(i + 1), Username: name, PasswordHash: string(hash), IsActive: true}
		users.byID[u.ID] = u
		byName[name] = u
	}

	messages := &memMessages{}
	presence := &memPresence{}
	repos := &repository.Repositories{
		User:      users,
		Room:      &memRooms{users: users, rooms: make(map[int64]*domain.Room)},
		Message:   messages,
		Presence:  presence,
		RateLimit: &memRateLimit{counts: make(map[string]int64)},
	}

	b := &trackingBroker{Broker: broker.NewMemoryBroker()}
	services, err := service.NewServices(repos, b, cfg, logger.Nop())
	require.NoError(t, err)

	handlers := NewHandlers(services, b, nil, nil, cfg, logger.Nop())
	router := SetupRouter(handlers,
		middleware.NewAuthMiddleware(services.Auth, logger.Nop()),
		middleware.NewRateLimitMiddleware(services.RateLimit, logger.Nop()),
		cfg, logger.Nop())
	t.Cleanup(handlers.WebSocket.Shutdown)

	return &testEnv{
		cfg:      cfg,
		users:    byName,
		messages: messages,
		presence: presence,
		broker:   b,
		services: services,
		router:   router,
		handlers: handlers,
	}
}

func (e *testEnv) token(t *testing.T, username string) string {
	t.Helper()
	u := e.users[username]
	tok, err := jwt.GenerateAccessToken(u.ID, u.Username, e.cfg.JWT.AccessSecret, e.cfg.JWT.Issuer, time.Hour)
	require.NoError(t, err)
	return tok
}
