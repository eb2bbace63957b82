package chat

import "time"

// Event names emitted to connected clients.
const (
	EventConnected       = "connected"
	EventMessageReceived = "message_received"
	EventError           = "error"
	EventJoinedRoom      = "joined_room"
	EventLeftRoom        = "left_room"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventRoomStats       = "room_stats"
)

// BotName is the synthetic identity that authors stock bot messages.
const BotName = "StockBot"

// MessageDTO is the wire form of a chat message. Persisted messages carry
// their database id; bot messages carry a locally-unique uuid that exists
// only for client-side rendering.
type MessageDTO struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	RoomID    string    `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
	IsBot     bool      `json:"isBot"`
}

// ErrorDTO is the wire form of an error event.
type ErrorDTO struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// PresenceDTO announces a user joining or leaving a room.
type PresenceDTO struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// RoomStatsDTO carries the current member count of a room.
type RoomStatsDTO struct {
	RoomID      string `json:"roomId"`
	MemberCount int64  `json:"memberCount"`
}
