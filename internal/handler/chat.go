package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"wetalk/internal/config"
	"wetalk/internal/middleware"
	"wetalk/internal/service"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

// ChatHandler is the non-realtime view of a room's messages.
type ChatHandler struct {
	roomService service.RoomService
	chatService service.ChatService
	cfg         config.ChatConfig
	log         logger.Logger
}

func NewChatHandler(roomService service.RoomService, chatService service.ChatService, cfg config.ChatConfig, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		roomService: roomService,
		chatService: chatService,
		cfg:         cfg,
		log:         log,
	}
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperrors.ErrUnauthenticated)
		return
	}

	limit := h.cfg.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, apperrors.ErrBadRequest)
			return
		}
		limit = n
	}

	room, err := roomForParticipant(c, h.roomService, user)
	if err != nil {
		fail(c, err)
		return
	}

	messages, err := h.chatService.Recent(c.Request.Context(), room.ID, limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// SendMessage is the non-realtime write path. Live connections of the room
// receive the message the same way as one sent over the socket.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperrors.ErrUnauthenticated)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.ErrBadRequest)
		return
	}

	room, err := roomForParticipant(c, h.roomService, user)
	if err != nil {
		fail(c, err)
		return
	}

	msg, err := h.chatService.Send(c.Request.Context(), room, user, req.Text)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}
