package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"stockchat/internal/domain"
)

const messageColumns = `id, room_id, author, content, is_bot, created_at`

// MessageRepo implements domain.MessageRepository backed by PostgreSQL.
// Only user messages land here; bot responses are ephemeral.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Add(ctx context.Context, roomID int64, author, content string) (*domain.Message, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO messages (room_id, author, content) VALUES ($1, $2, $3) RETURNING `+messageColumns,
		roomID, author, content)

	var msg domain.Message
	if err := row.Scan(&msg.ID, &msg.RoomID, &msg.Author, &msg.Content, &msg.IsBot, &msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return &msg, nil
}

// ListRecent returns the most recent messages for a room, oldest first.
func (r *MessageRepo) ListRecent(ctx context.Context, roomID int64, limit int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY created_at ASC, id ASC`,
		roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Author, &msg.Content, &msg.IsBot, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
