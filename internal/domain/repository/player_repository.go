package repository

import (
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type PlayerRepository interface {
	Create(ctx context.Context, profile *model.PlayerProfile) error
	FindByID(ctx context.Context, id string) (*model.PlayerProfile, error)
	FindByUsername(ctx context.Context, username string) (*model.PlayerProfile, error)
	RecordGameOutcome(ctx context.Context, tx *sql.Tx, playerID string, won bool) error
}

type pgPlayerRepository struct {
	db *sql.DB
}

func NewPgPlayerRepository(db *sql.DB) PlayerRepository {
	return &pgPlayerRepository{db: db}
}

func (r *pgPlayerRepository) Create(ctx context.Context, p *model.PlayerProfile) error {
	query := `INSERT INTO player_profiles (id, username)
	          VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Username)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("player with this username already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgPlayerRepository.Create: %w", err)
	}
	return nil
}

func (r *pgPlayerRepository) FindByID(ctx context.Context, id string) (*model.PlayerProfile, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *pgPlayerRepository) FindByUsername(ctx context.Context, username string) (*model.PlayerProfile, error) {
	return r.findOne(ctx, `WHERE LOWER(username) = LOWER($1)`, username)
}

func (r *pgPlayerRepository) findOne(ctx context.Context, where string, arg any) (*model.PlayerProfile, error) {
	query := `SELECT id, username, current_rank, total_wins, total_losses, games_played, created_at, updated_at
	          FROM player_profiles ` + where
	p := &model.PlayerProfile{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.Username, &p.CurrentRank, &p.TotalWins, &p.TotalLosses, &p.GamesPlayed, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPlayerRepository.findOne: %w", err)
	}
	return p, nil
}

// RecordGameOutcome bumps the win/loss counters after a session finishes.
func (r *pgPlayerRepository) RecordGameOutcome(ctx context.Context, tx *sql.Tx, playerID string, won bool) error {
	query := `UPDATE player_profiles SET
	            games_played = games_played + 1,
	            total_wins = total_wins + $1,
	            total_losses = total_losses + $2,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $3`
	wins, losses := 0, 1
	if won {
		wins, losses = 1, 0
	}
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, wins, losses, playerID)
	} else {
		_, err = r.db.ExecContext(ctx, query, wins, losses, playerID)
	}
	if err != nil {
		return fmt.Errorf("pgPlayerRepository.RecordGameOutcome: %w", err)
	}
	return nil
}
