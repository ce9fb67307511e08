package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrBadRequest         = errors.New("bad request")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrRateLimited        = errors.New("rate limit exceeded")

	// Chat core taxonomy.
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUnknownCounterpart = errors.New("counterpart user does not exist")
	ErrSelfChat           = errors.New("cannot start a chat with yourself")
	ErrRoomNotFound       = errors.New("room not found")
	ErrNotParticipant     = errors.New("you are not a participant in this chat room")
	ErrEmptyPayload       = errors.New("message is empty")
	ErrTransientStore     = errors.New("storage temporarily unavailable")
	ErrFanout             = errors.New("broadcast failed")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	var apiErr *APIError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrUnknownCounterpart):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrSelfChat), errors.Is(err, ErrEmptyPayload):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTransientStore), errors.Is(err, ErrFanout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns text that is safe to hand back to a client.
// Wrapped storage errors are collapsed to their sentinel.
func PublicMessage(err error) string {
	for _, known := range []error{
		ErrUnauthenticated, ErrUnknownCounterpart, ErrSelfChat, ErrRoomNotFound,
		ErrNotParticipant, ErrEmptyPayload, ErrTransientStore, ErrFanout,
		ErrInvalidCredentials, ErrInvalidToken, ErrTokenExpired, ErrRateLimited,
		ErrBadRequest, ErrNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ErrInternalServer.Error()
}
