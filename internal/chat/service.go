package chat

import (
	"context"
	"fmt"
	"strings"

	"stockchat/internal/domain"
	"stockchat/internal/metrics"
)

const (
	defaultMessageCount = 50
	maxMessageCount     = 100
)

// Service implements room and message operations shared by the REST handlers
// and the connection dispatcher.
type Service struct {
	rooms    domain.RoomRepository
	messages domain.MessageRepository
}

func NewService(rooms domain.RoomRepository, messages domain.MessageRepository) *Service {
	return &Service{rooms: rooms, messages: messages}
}

// ListRooms returns all chat rooms.
func (s *Service) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// GetRoom returns a single room or domain.ErrRoomNotFound.
func (s *Service) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	return s.rooms.Get(ctx, id)
}

// CreateRoom creates a room with a trimmed, non-empty name.
func (s *Service) CreateRoom(ctx context.Context, name string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("room name cannot be empty")
	}
	room, err := s.rooms.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// RecentMessages returns up to limit recent messages for a room, oldest first.
// A limit outside 1..100 falls back to the default of 50.
func (s *Service) RecentMessages(ctx context.Context, roomID int64, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > maxMessageCount {
		limit = defaultMessageCount
	}
	messages, err := s.messages.ListRecent(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for room %d: %w", roomID, err)
	}
	return messages, nil
}

// SendMessage persists a trimmed chat message. Broadcast is the caller's
// responsibility; bot messages never pass through here.
func (s *Service) SendMessage(ctx context.Context, roomID int64, content, author string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content cannot be empty")
	}
	if author == "" {
		return nil, fmt.Errorf("author is required")
	}

	msg, err := s.messages.Add(ctx, roomID, author, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	metrics.ChatMessagesTotal.Inc()
	return msg, nil
}
