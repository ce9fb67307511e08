package domain

import "time"

type Message struct {
	ID             int64     `json:"id"`
	RoomID         int64     `json:"chat_room"`
	SenderID       int64     `json:"sender_id"`
	SenderUsername string    `json:"sender"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"time_stamp"`
	IsRead         bool      `json:"is_read"`
}
