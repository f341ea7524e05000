package repository

import (
	"codetective/internal/domain/model"
	"context"
	"database/sql"
	"fmt"
)

// RoomRepository mirrors live room state into durable records. The
// in-memory registry stays authoritative; this store exists so rooms
// survive for history/admin views, not for correctness.
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	UpdateStatus(ctx context.Context, roomID string, status model.RoomStatus, currentPlayers int) error
	Delete(ctx context.Context, roomID string) error
}

type pgRoomRepository struct {
	db *sql.DB
}

func NewPgRoomRepository(db *sql.DB) RoomRepository {
	return &pgRoomRepository{db: db}
}

func (r *pgRoomRepository) Create(ctx context.Context, room *model.Room) error {
	query := `INSERT INTO game_rooms (id, name, max_players, current_players, status, game_mode, difficulty, is_private, join_code)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))`
	_, err := r.db.ExecContext(ctx, query,
		room.ID, room.Name, room.MaxPlayers, room.CurrentPlayers, room.Status, room.GameMode, room.Difficulty, room.IsPrivate, room.JoinCode)
	if err != nil {
		return fmt.Errorf("pgRoomRepository.Create: %w", err)
	}
	return nil
}

func (r *pgRoomRepository) UpdateStatus(ctx context.Context, roomID string, status model.RoomStatus, currentPlayers int) error {
	query := `UPDATE game_rooms SET status = $1, current_players = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, currentPlayers, roomID); err != nil {
		return fmt.Errorf("pgRoomRepository.UpdateStatus: %w", err)
	}
	return nil
}

func (r *pgRoomRepository) Delete(ctx context.Context, roomID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM game_rooms WHERE id = $1`, roomID); err != nil {
		return fmt.Errorf("pgRoomRepository.Delete: %w", err)
	}
	return nil
}
