package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PresenceStore tracks room membership in Redis sets, one set per room.
// Membership is advisory display state; a Redis outage degrades room stats
// but never blocks chat.
type PresenceStore struct {
	rdb *redis.Client
}

func NewPresenceStore(rdb *redis.Client) *PresenceStore {
	return &PresenceStore{rdb: rdb}
}

func presenceKey(roomID string) string {
	return fmt.Sprintf("room:%s:members", roomID)
}

func (s *PresenceStore) Join(ctx context.Context, roomID, username string) error {
	if err := s.rdb.SAdd(ctx, presenceKey(roomID), username).Err(); err != nil {
		return fmt.Errorf("failed to add room member: %w", err)
	}
	return nil
}

func (s *PresenceStore) Leave(ctx context.Context, roomID, username string) error {
	if err := s.rdb.SRem(ctx, presenceKey(roomID), username).Err(); err != nil {
		return fmt.Errorf("failed to remove room member: %w", err)
	}
	return nil
}

func (s *PresenceStore) Count(ctx context.Context, roomID string) (int64, error) {
	count, err := s.rdb.SCard(ctx, presenceKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count room members: %w", err)
	}
	return count, nil
}

// NoopPresence is used when Redis is not configured. Counts always read zero.
type NoopPresence struct{}

func (NoopPresence) Join(context.Context, string, string) error   { return nil }
func (NoopPresence) Leave(context.Context, string, string) error  { return nil }
func (NoopPresence) Count(context.Context, string) (int64, error) { return 0, nil }
