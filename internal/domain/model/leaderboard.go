package model

// LeaderboardEntry is derived state, never stored on its own. Rank is
// positional in the snapshot; ties keep first-seen order.
type LeaderboardEntry struct {
	Rank           int      `json:"rank"`
	PlayerID       string   `json:"player_id"`
	Username       string   `json:"username"`
	Role           GameRole `json:"role,omitempty"`
	Score          int      `json:"score"`
	TasksCompleted int      `json:"tasks_completed"`
}

// GlobalLeaderboardEntry aggregates a profile's persisted history.
type GlobalLeaderboardEntry struct {
	Rank         int     `json:"rank"`
	PlayerID     string  `json:"player_id"`
	Username     string  `json:"username"`
	TotalScore   int     `json:"total_score"`
	GamesPlayed  int     `json:"games_played"`
	TotalWins    int     `json:"total_wins"`
	WinRate      float64 `json:"win_rate"`
	AverageScore float64 `json:"average_score"`
}

// GameRecord is the persisted outcome of a finished session.
type GameRecord struct {
	ID              string   `json:"id"`
	SessionID       string   `json:"session_id"`
	RoomID          string   `json:"room_id"`
	GameMode        GameMode `json:"game_mode"`
	DurationSeconds int      `json:"duration_seconds"`
	WinnerID        string   `json:"winner_id,omitempty"`
	WinnerScore     int      `json:"winner_score"`
	PlayerCount     int      `json:"player_count"`
}
