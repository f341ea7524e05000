package repository

import (
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type GameRecordRepository interface {
	CreateRecord(ctx context.Context, tx *sql.Tx, record *model.GameRecord) error
	CreatePlayerScore(ctx context.Context, tx *sql.Tx, recordID, playerID string, score, tasksCompleted int) error
	FindRecordBySessionID(ctx context.Context, sessionID string) (*model.GameRecord, error)
	GetGlobalLeaderboard(ctx context.Context, limit int) ([]model.GlobalLeaderboardEntry, error)
}

type pgGameRecordRepository struct {
	db *sql.DB
}

func NewPgGameRecordRepository(db *sql.DB) GameRecordRepository {
	return &pgGameRecordRepository{db: db}
}

func (r *pgGameRecordRepository) CreateRecord(ctx context.Context, tx *sql.Tx, rec *model.GameRecord) error {
	query := `INSERT INTO game_records (id, session_id, room_id, game_mode, duration_seconds, winner_id, winner_score, player_count)
	          VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, rec.ID, rec.SessionID, rec.RoomID, rec.GameMode, rec.DurationSeconds, rec.WinnerID, rec.WinnerScore, rec.PlayerCount)
	} else {
		_, err = r.db.ExecContext(ctx, query, rec.ID, rec.SessionID, rec.RoomID, rec.GameMode, rec.DurationSeconds, rec.WinnerID, rec.WinnerScore, rec.PlayerCount)
	}
	if err != nil {
		return fmt.Errorf("pgGameRecordRepository.CreateRecord: %w", err)
	}
	return nil
}

func (r *pgGameRecordRepository) CreatePlayerScore(ctx context.Context, tx *sql.Tx, recordID, playerID string, score, tasksCompleted int) error {
	query := `INSERT INTO game_record_scores (record_id, player_id, score, tasks_completed)
	          VALUES ($1, $2, $3, $4)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, recordID, playerID, score, tasksCompleted)
	} else {
		_, err = r.db.ExecContext(ctx, query, recordID, playerID, score, tasksCompleted)
	}
	if err != nil {
		return fmt.Errorf("pgGameRecordRepository.CreatePlayerScore: %w", err)
	}
	return nil
}

func (r *pgGameRecordRepository) FindRecordBySessionID(ctx context.Context, sessionID string) (*model.GameRecord, error) {
	query := `SELECT id, session_id, room_id, game_mode, duration_seconds, COALESCE(winner_id, ''), winner_score, player_count
	          FROM game_records WHERE session_id = $1`
	rec := &model.GameRecord{}
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&rec.ID, &rec.SessionID, &rec.RoomID, &rec.GameMode, &rec.DurationSeconds, &rec.WinnerID, &rec.WinnerScore, &rec.PlayerCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgGameRecordRepository.FindRecordBySessionID: %w", err)
	}
	return rec, nil
}

// GetGlobalLeaderboard aggregates per-player history across all finished
// sessions, ranked by cumulative score.
func (r *pgGameRecordRepository) GetGlobalLeaderboard(ctx context.Context, limit int) ([]model.GlobalLeaderboardEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT p.id, p.username,
               COALESCE(SUM(s.score), 0)  AS total_score,
               p.games_played, p.total_wins
        FROM player_profiles p
        LEFT JOIN game_record_scores s ON s.player_id = p.id
        GROUP BY p.id, p.username, p.games_played, p.total_wins
        ORDER BY total_score DESC, p.username ASC
        LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgGameRecordRepository.GetGlobalLeaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.GlobalLeaderboardEntry
	rank := 0
	for rows.Next() {
		var e model.GlobalLeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.TotalScore, &e.GamesPlayed, &e.TotalWins); err != nil {
			return nil, fmt.Errorf("pgGameRecordRepository.GetGlobalLeaderboard scan: %w", err)
		}
		rank++
		e.Rank = rank
		if e.GamesPlayed > 0 {
			e.WinRate = float64(e.TotalWins) / float64(e.GamesPlayed)
			e.AverageScore = float64(e.TotalScore) / float64(e.GamesPlayed)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
