package model

import "time"

type RoomStatus string
type GameMode string
type Difficulty string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomStarting RoomStatus = "starting"
	RoomActive   RoomStatus = "active"
	RoomPaused   RoomStatus = "paused"
	RoomFinished RoomStatus = "finished"

	ModeClassic    GameMode = "classic"
	ModeBlitz      GameMode = "blitz"
	ModeTournament GameMode = "tournament"

	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ModeDuration returns the session length for a game mode in seconds.
func ModeDuration(mode GameMode) int {
	switch mode {
	case ModeBlitz:
		return 900 // 15 minutes
	case ModeTournament:
		return 3600 // 60 minutes
	default:
		return 2700 // classic, 45 minutes
	}
}

type Room struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	MaxPlayers     int        `json:"max_players"`
	CurrentPlayers int        `json:"current_players"`
	Status         RoomStatus `json:"status"`
	GameMode       GameMode   `json:"game_mode"`
	Difficulty     Difficulty `json:"difficulty"`
	IsPrivate      bool       `json:"is_private"`
	JoinCode       string     `json:"join_code,omitempty"` // present iff private
	CreatedAt      time.Time  `json:"created_at"`
}

// Joinable reports whether the room can accept another player.
func (r *Room) Joinable() bool {
	return r.Status == RoomWaiting && r.CurrentPlayers < r.MaxPlayers
}
