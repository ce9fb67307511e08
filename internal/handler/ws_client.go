package handler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"wetalk/internal/config"
	"wetalk/internal/domain"
	"wetalk/internal/metrics"
	"wetalk/pkg/logger"
)

// wsClient is one open chat connection. It receives room events from the
// broker and owns the only writer of its socket.
type wsClient struct {
	id   string
	user *domain.User
	room *domain.Room
	cfg  config.ChatConfig
	log  logger.Logger

	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	writerDone chan struct{}

	mu        sync.Mutex
	replaying bool
	pending   []domain.Event
	replayed  map[int64]struct{}
	closed    bool
}

func newClient(id string, user *domain.User, room *domain.Room, cfg config.ChatConfig, log logger.Logger) *wsClient {
	return &wsClient{
		id:         id,
		user:       user,
		room:       room,
		cfg:        cfg,
		log:        log.With("conn_id", id),
		send:       make(chan []byte, cfg.SendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		replaying:  true,
		replayed:   make(map[int64]struct{}),
	}
}

func (c *wsClient) ID() string {
	return c.id
}

// Deliver is called by the broker. Until replay completes events are held
// back so that history is always written first.
func (c *wsClient) Deliver(evt domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.replaying {
		c.pending = append(c.pending, evt)
		return
	}
	if _, seen := c.replayed[evt.MessageID]; seen {
		return
	}

	payload, err := json.Marshal(evt.Frame())
	if err != nil {
		c.log.Error("Failed to encode event", "error", err)
		return
	}

	select {
	case c.send <- payload:
	default:
		metrics.EventsDropped.Inc()
		c.log.Warn("Send queue full, dropping event", "type", evt.Type, "message_id", evt.MessageID)
	}
}

func (c *wsClient) attach(conn *websocket.Conn) {
	c.conn = conn
}

// replay writes history, then the events that arrived meanwhile, then
// switches the client to live delivery.
func (c *wsClient) replay(history []*domain.Message) {
	c.mu.Lock()
	for _, msg := range history {
		c.replayed[msg.ID] = struct{}{}
	}
	c.mu.Unlock()

	for _, msg := range history {
		if !c.write(domain.MessageFrameFrom(msg)) {
			return
		}
	}

	for {
		c.mu.Lock()
		batch := c.pending
		c.pending = nil
		if len(batch) == 0 {
			c.replaying = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		for _, evt := range batch {
			if _, seen := c.replayed[evt.MessageID]; seen {
				continue
			}
			if !c.write(evt.Frame()) {
				return
			}
		}
	}
}

func (c *wsClient) sendError(message string) {
	c.write(domain.ErrorFrame{Error: message})
}

// write queues a frame, waiting for room in the queue. It reports false once
// the client or its writer has stopped.
func (c *wsClient) write(frame interface{}) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.log.Error("Failed to encode frame", "error", err)
		return true
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	case <-c.writerDone:
		return false
	}
}

func (c *wsClient) writePump(ctx context.Context) {
	pingPeriod := c.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(c.cfg.WriteWait))
			return
		case <-c.done:
			return
		}
	}
}

// close stops delivery and the writer. Safe to call more than once.
func (c *wsClient) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	if c.conn != nil {
		<-c.writerDone
	}
}
