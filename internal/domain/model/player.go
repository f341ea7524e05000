package model

import (
	"time"
)

// Auth roles carried in JWT claims.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// GameRole is the in-session persona assigned at game start.
type GameRole string

const (
	GameRoleHacker    GameRole = "hacker"
	GameRoleDetective GameRole = "detective"
)

// Player is the live, room-scoped view of a participant. Created at room
// join, destroyed at leave or session teardown. Role stays empty until
// assignment at session start.
type Player struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Role     GameRole  `json:"role,omitempty"`
	Score    int       `json:"score"`
	IsOnline bool      `json:"is_online"`
	IsReady  bool      `json:"is_ready"`
	JoinedAt time.Time `json:"joined_at"`
}

// PlayerProfile is the persisted record behind a nickname. Totals are
// updated when a session finishes.
type PlayerProfile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	CurrentRank int       `json:"current_rank"`
	TotalWins   int       `json:"total_wins"`
	TotalLosses int       `json:"total_losses"`
	GamesPlayed int       `json:"games_played"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
