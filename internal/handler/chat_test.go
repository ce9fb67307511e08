package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wetalk/internal/domain"
	"wetalk/pkg/logger"
)

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, mod := range mods {
		mod(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func asUser(e *testEnv, t *testing.T, username string) func(*http.Request) {
	token := e.token(t, username)
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "access", Value: token})
	}
}

func TestAuth_LoginSetsCookies(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: "alice", Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, "access")
	require.Contains(t, cookies, "refresh")
	assert.True(t, cookies["access"].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies["access"].SameSite)

	// the issued cookie authenticates the REST views
	w = env.do(t, http.MethodGet, "/api/v1/rooms", nil, func(r *http.Request) { r.AddCookie(cookies["access"]) })
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) { r.AddCookie(cookies["refresh"]) })
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_LoginRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth_Logout(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.True(t, c.MaxAge < 0, c.Name)
	}
}

func TestRooms_OpenListAndMessages(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/rooms", OpenRoomRequest{Username: "bob"}, asUser(env, t, "alice"))
	require.Equal(t, http.StatusCreated, w.Code)
	var opened OpenRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))
	assert.True(t, opened.Created)
	assert.Equal(t, "bob", opened.Counterpart.Username)

	w = env.do(t, http.MethodPost, "/api/v1/rooms", OpenRoomRequest{Username: "alice"}, asUser(env, t, "bob"))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/rooms", nil, asUser(env, t, "bob"))
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []domain.RoomSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "alice", rooms[0].Counterpart.Username)

	messagesPath := fmt.Sprintf("/api/v1/rooms/%d/messages", opened.Room.ID)
	for _, text := range []string{"one", "two", "three"} {
		w = env.do(t, http.MethodPost, messagesPath, SendMessageRequest{Text: text}, asUser(env, t, "alice"))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = env.do(t, http.MethodGet, messagesPath+"?limit=2", nil, asUser(env, t, "bob"))
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []domain.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Text)
	assert.Equal(t, "three", msgs[1].Text)
	assert.Equal(t, "alice", msgs[1].SenderUsername)
}

func TestRooms_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/rooms", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/rooms", OpenRoomRequest{Username: "ghost"}, asUser(env, t, "alice"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/rooms", OpenRoomRequest{Username: "alice"}, asUser(env, t, "alice"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/rooms", OpenRoomRequest{Username: "bob"}, asUser(env, t, "alice"))
	require.Equal(t, http.StatusCreated, w.Code)
	var opened OpenRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))
	messagesPath := fmt.Sprintf("/api/v1/rooms/%d/messages", opened.Room.ID)

	w = env.do(t, http.MethodGet, messagesPath, nil, asUser(env, t, "carol"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not a participant")

	w = env.do(t, http.MethodPost, messagesPath, SendMessageRequest{Text: "  "}, asUser(env, t, "alice"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/rooms/999/messages", nil, asUser(env, t, "alice"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, messagesPath+"?limit=-1", nil, asUser(env, t, "alice"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	h := &HealthHandler{log: logger.Nop(), checks: map[string]healthCheck{
		"postgres": func(ctx context.Context) error {
			return errors.New("dial tcp 10.1.2.3:5432: connection refused")
		},
		"redis": func(ctx context.Context) error { return nil },
	}}
	env.router.GET("/health-degraded", h.Check)
	w = env.do(t, http.MethodGet, "/health-degraded", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, map[string]string{"postgres": "unavailable", "redis": "ok"}, body.Dependencies)
	assert.NotContains(t, w.Body.String(), "10.1.2.3")
}

func TestUsersMeAndRoomByID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/users/me", nil, asUser(env, t, "carol"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"carol"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(t, http.MethodPost, "/api/v1/rooms", OpenRoomRequest{Username: "dave"}, asUser(env, t, "carol"))
	require.Equal(t, http.StatusCreated, w.Code)
	var opened OpenRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d", opened.Room.ID), nil, asUser(env, t, "dave"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d", opened.Room.ID), nil, asUser(env, t, "alice"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
