package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"wetalk/internal/broker"
	"wetalk/internal/config"
	"wetalk/internal/domain"
	"wetalk/internal/metrics"
	"wetalk/internal/middleware"
	"wetalk/internal/service"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

// WebSocketHandler serves /ws/chat/:username, the realtime conversation
// between the caller and the named user.
type WebSocketHandler struct {
	auth      service.AuthService
	rooms     service.RoomService
	chat      service.ChatService
	presence  service.PresenceService
	rateLimit service.RateLimitService
	broker    broker.Broker
	cfg       config.ChatConfig
	upgrader  websocket.Upgrader
	log       logger.Logger

	// base отменяется при остановке сервера и закрывает все соединения
	base     context.Context
	shutdown context.CancelFunc
}

func NewWebSocketHandler(services *service.Services, b broker.Broker, cfg config.ChatConfig, log logger.Logger) *WebSocketHandler {
	base, cancel := context.WithCancel(context.Background())
	h := &WebSocketHandler{
		auth:      services.Auth,
		rooms:     services.Room,
		chat:      services.Chat,
		presence:  services.Presence,
		rateLimit: services.RateLimit,
		broker:    b,
		cfg:       cfg,
		log:       log.With("component", "websocket"),
		base:      base,
		shutdown:  cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// originChecker allows the configured origins. Without a list gorilla's
// same-host check applies.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Shutdown closes every open connection with a going-away frame.
func (h *WebSocketHandler) Shutdown() {
	h.shutdown()
}

func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.auth.Authenticate(ctx, middleware.AccessToken(c.Request))
	if err != nil {
		fail(c, err)
		return
	}

	opened, err := h.rooms.OpenWith(ctx, user, c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}
	room := opened.Room
	group := room.GroupName()

	client := newClient(uuid.NewString(), user, room, h.cfg, h.log)

	if err := h.broker.Subscribe(ctx, group, client); err != nil {
		h.log.Error("Failed to join room group", "error", err, "room_id", room.ID)
		fail(c, fmt.Errorf("%w: %v", apperrors.ErrFanout, err))
		return
	}
	subscribed := true
	defer func() {
		if subscribed {
			h.leave(group, client)
		}
	}()

	if err := h.presence.Touch(ctx, user.ID, group); err != nil {
		h.log.Warn("Failed to touch presence", "error", err, "user_id", user.ID)
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrader уже ответил клиенту
		h.log.Debug("Upgrade failed", "error", err, "user_id", user.ID)
		return
	}

	connCtx, cancel := context.WithCancel(h.base)
	metrics.ActiveConnections.Inc()
	h.log.Info("Chat connection opened", "user_id", user.ID, "room_id", room.ID, "conn_id", client.id)

	client.attach(conn)
	go client.writePump(connCtx)

	defer func() {
		subscribed = false
		h.leave(group, client)
		client.close()
		cancel()
		metrics.ActiveConnections.Dec()
		h.log.Info("Chat connection closed", "user_id", user.ID, "room_id", room.ID, "conn_id", client.id)
	}()

	history, err := h.chat.Recent(connCtx, room.ID, h.cfg.HistoryLimit)
	if err != nil {
		h.log.Error("Failed to load history", "error", err, "room_id", room.ID)
		client.sendError(apperrors.PublicMessage(err))
	}
	client.replay(history)

	h.readLoop(connCtx, client)
}

func (h *WebSocketHandler) leave(group string, client *wsClient) {
	// Отписка не должна зависеть от уже отменённого контекста запроса
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.broker.Unsubscribe(ctx, group, client); err != nil {
		h.log.Warn("Failed to leave room group", "error", err, "group", group)
	}
}

func (h *WebSocketHandler) readLoop(ctx context.Context, client *wsClient) {
	conn := client.conn
	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Connection read error", "error", err, "conn_id", client.id)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		if msgType != websocket.TextMessage {
			metrics.FramesRejected.WithLabelValues("binary").Inc()
			client.sendError("only text frames are accepted")
			continue
		}

		h.handleFrame(ctx, client, data)
	}
}

// handleFrame processes one inbound frame. Failures are reported to this
// connection only.
func (h *WebSocketHandler) handleFrame(ctx context.Context, client *wsClient, data []byte) {
	var in domain.InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		metrics.FramesRejected.WithLabelValues("decode").Inc()
		client.sendError("invalid message format")
		return
	}

	if strings.TrimSpace(in.Message) == "" {
		return
	}

	key := fmt.Sprintf("rl:ws:%d", client.user.ID)
	if allowed, _ := h.rateLimit.Allow(ctx, key, h.cfg.RateLimit, h.cfg.RateWindow); !allowed {
		metrics.FramesRejected.WithLabelValues("rate_limit").Inc()
		client.sendError(apperrors.ErrRateLimited.Error())
		return
	}

	if _, err := h.chat.Send(ctx, client.room, client.user, in.Message); err != nil {
		metrics.FramesRejected.WithLabelValues("send").Inc()
		h.log.Warn("Failed to send message", "error", err, "user_id", client.user.ID, "room_id", client.room.ID)
		client.sendError(apperrors.PublicMessage(err))
	}
}
