package domain

import (
	"context"
	"time"
)

// --- Model types ---

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Room struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

type Message struct {
	ID        int64
	RoomID    int64
	Author    string
	Content   string
	IsBot     bool
	CreatedAt time.Time
}

// --- Repository contracts ---

// UserRepository handles user persistence.
type UserRepository interface {
	Create(ctx context.Context, email, username, passwordHash string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

// RoomRepository handles chat room persistence.
type RoomRepository interface {
	Create(ctx context.Context, name string) (*Room, error)
	Get(ctx context.Context, id int64) (*Room, error)
	List(ctx context.Context) ([]Room, error)
}

// MessageRepository handles chat message persistence. Bot messages are
// ephemeral and never pass through this interface.
type MessageRepository interface {
	Add(ctx context.Context, roomID int64, author, content string) (*Message, error)
	ListRecent(ctx context.Context, roomID int64, limit int) ([]Message, error)
}

// --- Transport contracts ---

// Notifier pushes an event to every connection currently in a room.
type Notifier interface {
	BroadcastToRoom(roomID string, event string, payload any)
}

// PresenceStore tracks which users are currently in which rooms.
type PresenceStore interface {
	Join(ctx context.Context, roomID, username string) error
	Leave(ctx context.Context, roomID, username string) error
	Count(ctx context.Context, roomID string) (int64, error)
}
