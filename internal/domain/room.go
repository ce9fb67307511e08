package domain

import (
	"fmt"
	"time"
)

// Room is the conversation between exactly two users. User1ID is always the
// smaller id, so (A,B) and (B,A) share the same row.
type Room struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CanonicalPair orders two user ids the way rooms are stored.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

func (r *Room) HasParticipant(userID int64) bool {
	return r.User1ID == userID || r.User2ID == userID
}

// GroupName is the broadcast channel and presence key of the room.
func (r *Room) GroupName() string {
	return GroupName(r.ID)
}

func GroupName(roomID int64) string {
	return fmt.Sprintf("chat_%d", roomID)
}

// RoomSummary is what the rooms listing returns: the room plus the other user.
type RoomSummary struct {
	ID          int64     `json:"id"`
	Counterpart *User     `json:"counterpart"`
	CreatedAt   time.Time `json:"created_at"`
}
