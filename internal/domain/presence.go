package domain

import "time"

// PresenceRecord is a liveness hint for a (user, channel) pair, not an
// authoritative online flag.
type PresenceRecord struct {
	UserID     int64     `json:"user_id"`
	Channel    string    `json:"room_name"`
	LastActive time.Time `json:"last_active"`
}
