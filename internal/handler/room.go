package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"wetalk/internal/domain"
	"wetalk/internal/middleware"
	"wetalk/internal/service"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

type RoomHandler struct {
	roomService service.RoomService
	log         logger.Logger
}

func NewRoomHandler(roomService service.RoomService, log logger.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		log:         log,
	}
}

type OpenRoomRequest struct {
	Username string `json:"username" binding:"required"`
}

type OpenRoomResponse struct {
	Room        *domain.Room `json:"room"`
	Counterpart *domain.User `json:"counterpart"`
	Created     bool         `json:"created"`
}

func (h *RoomHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperrors.ErrUnauthenticated)
		return
	}

	rooms, err := h.roomService.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// Open resolves the caller's room with the named user, creating it on first
// contact (201) and returning the existing one afterwards (200).
func (h *RoomHandler) Open(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperrors.ErrUnauthenticated)
		return
	}

	var req OpenRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.ErrBadRequest)
		return
	}

	opened, err := h.roomService.OpenWith(c.Request.Context(), user, req.Username)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusOK
	if opened.Created {
		status = http.StatusCreated
	}
	c.JSON(status, OpenRoomResponse{Room: opened.Room, Counterpart: opened.Counterpart, Created: opened.Created})
}

func (h *RoomHandler) GetByID(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperrors.ErrUnauthenticated)
		return
	}

	room, err := roomForParticipant(c, h.roomService, user)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// roomForParticipant loads the :id room if user takes part in it.
func roomForParticipant(c *gin.Context, rooms service.RoomService, user *domain.User) (*domain.Room, error) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, apperrors.ErrRoomNotFound
	}
	return rooms.GetForParticipant(c.Request.Context(), roomID, user.ID)
}
