package model

import (
	"codetective/internal/common"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionWaiting  SessionStatus = "waiting"
	SessionStarting SessionStatus = "starting"
	SessionActive   SessionStatus = "active"
	SessionPaused   SessionStatus = "paused"
	SessionFinished SessionStatus = "finished" // terminal
)

// GameSession is a single room's clocked lifecycle. One live instance per
// room; the owning service serializes all mutation, so the methods here
// assume exclusive access.
//
// Transitions: waiting -> starting -> active <-> paused -> finished.
// finished is terminal; every transition attempt out of it fails with
// ErrInvalidTransition.
type GameSession struct {
	ID            string        `json:"id"`
	RoomID        string        `json:"room_id"`
	Status        SessionStatus `json:"status"`
	GameMode      GameMode      `json:"game_mode"`
	TimeRemaining int           `json:"time_remaining"` // seconds
	CurrentRound  int           `json:"current_round"`
	TotalRounds   int           `json:"total_rounds"`
	StartedAt     time.Time     `json:"started_at,omitempty"`
	FinishedAt    time.Time     `json:"finished_at,omitempty"`
}

func NewGameSession(roomID string, mode GameMode, totalRounds int) *GameSession {
	if totalRounds <= 0 {
		totalRounds = 3
	}
	return &GameSession{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Status:      SessionWaiting,
		GameMode:    mode,
		TotalRounds: totalRounds,
	}
}

func (s *GameSession) transitionError(action string) error {
	return fmt.Errorf("cannot %s while session is %s: %w", action, s.Status, common.ErrInvalidTransition)
}

// Start moves the session to active and arms the countdown from the game
// mode's duration table. Allowed only from waiting or starting.
func (s *GameSession) Start() error {
	if s.Status != SessionWaiting && s.Status != SessionStarting {
		return s.transitionError("start")
	}
	s.Status = SessionActive
	s.TimeRemaining = ModeDuration(s.GameMode)
	s.CurrentRound = 1
	s.StartedAt = time.Now()
	return nil
}

// Tick decrements the countdown by exactly one second, floored at zero.
// Reaching zero finishes the session. Calling Tick in any state other
// than active is a no-op so the clock can keep firing across pauses.
func (s *GameSession) Tick() {
	if s.Status != SessionActive {
		return
	}
	if s.TimeRemaining > 0 {
		s.TimeRemaining--
	}
	if s.TimeRemaining == 0 {
		s.finish()
	}
}

func (s *GameSession) Pause() error {
	if s.Status != SessionActive {
		return s.transitionError("pause")
	}
	s.Status = SessionPaused
	return nil
}

func (s *GameSession) Resume() error {
	if s.Status != SessionPaused {
		return s.transitionError("resume")
	}
	s.Status = SessionActive
	return nil
}

// AdvanceRound moves to the next round; running past the final round
// finishes the session.
func (s *GameSession) AdvanceRound() error {
	if s.Status != SessionActive && s.Status != SessionPaused {
		return s.transitionError("advance round")
	}
	s.CurrentRound++
	if s.CurrentRound > s.TotalRounds {
		s.finish()
	}
	return nil
}

// Finish ends the session from any non-terminal state.
func (s *GameSession) Finish() error {
	if s.Status == SessionFinished {
		return s.transitionError("finish")
	}
	s.finish()
	return nil
}

func (s *GameSession) finish() {
	s.Status = SessionFinished
	s.FinishedAt = time.Now()
}

func (s *GameSession) Finished() bool {
	return s.Status == SessionFinished
}

// Elapsed returns how long the session ran, in seconds.
func (s *GameSession) Elapsed() int {
	return ModeDuration(s.GameMode) - s.TimeRemaining
}
