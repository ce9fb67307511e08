package domain

import "time"

const (
	EventChatMessage      = "chat.message"
	EventChatNotification = "chat.notification"
)

// Event is what travels over the broadcast channel of a room. MessageID is
// internal: it lets a connection drop live copies of messages it already
// replayed and is never written to the client.
type Event struct {
	Type         string    `json:"type"`
	RoomID       int64     `json:"chat_room"`
	MessageID    int64     `json:"message_id"`
	Sender       string    `json:"sender"`
	Message      string    `json:"message,omitempty"`
	Notification string    `json:"notification,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewMessageEvent(msg *Message) Event {
	return Event{
		Type:      EventChatMessage,
		RoomID:    msg.RoomID,
		MessageID: msg.ID,
		Sender:    msg.SenderUsername,
		Message:   msg.Text,
		Timestamp: msg.Timestamp,
	}
}

func NewNotificationEvent(msg *Message) Event {
	return Event{
		Type:         EventChatNotification,
		RoomID:       msg.RoomID,
		MessageID:    msg.ID,
		Sender:       msg.SenderUsername,
		Notification: "New message from " + msg.SenderUsername,
		Timestamp:    msg.Timestamp,
	}
}

// Outbound frames, in the shape clients already understand.

type MessageFrame struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type NotificationFrame struct {
	Type         string `json:"type"`
	Sender       string `json:"sender"`
	Notification string `json:"notification"`
	ChatRoom     int64  `json:"chat_room"`
}

type ErrorFrame struct {
	Error string `json:"error"`
}

// InboundFrame is the only thing a client may send after the handshake.
type InboundFrame struct {
	Message string `json:"message"`
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func MessageFrameFrom(msg *Message) MessageFrame {
	return MessageFrame{
		Sender:    msg.SenderUsername,
		Message:   msg.Text,
		Timestamp: FormatTimestamp(msg.Timestamp),
	}
}

// Frame converts the event to its client-facing shape.
func (e Event) Frame() interface{} {
	switch e.Type {
	case EventChatNotification:
		return NotificationFrame{
			Type:         "notification",
			Sender:       e.Sender,
			Notification: e.Notification,
			ChatRoom:     e.RoomID,
		}
	default:
		return MessageFrame{
			Sender:    e.Sender,
			Message:   e.Message,
			Timestamp: FormatTimestamp(e.Timestamp),
		}
	}
}
