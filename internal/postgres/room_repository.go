package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockchat/internal/domain"
)

const roomColumns = `id, name, created_at`

// RoomRepo implements domain.RoomRepository backed by PostgreSQL.
type RoomRepo struct {
	pool *pgxpool.Pool
}

func NewRoomRepo(pool *pgxpool.Pool) *RoomRepo {
	return &RoomRepo{pool: pool}
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var room domain.Room
	if err := row.Scan(&room.ID, &room.Name, &room.CreatedAt); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepo) Create(ctx context.Context, name string) (*domain.Room, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO rooms (name) VALUES ($1) RETURNING `+roomColumns, name)

	room, err := scanRoom(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrUniqueViolation {
			return nil, domain.ErrRoomNameTaken
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

func (r *RoomRepo) Get(ctx context.Context, id int64) (*domain.Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)

	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (r *RoomRepo) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}
