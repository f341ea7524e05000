package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"codetective/internal/app/event"
	"codetective/internal/common"
	"codetective/internal/domain/model"
)

type stubRecordRepo struct {
	mu      sync.Mutex
	records []*model.GameRecord
	scores  int
}

func (s *stubRecordRepo) CreateRecord(_ context.Context, _ *sql.Tx, rec *model.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

func (s *stubRecordRepo) CreatePlayerScore(_ context.Context, _ *sql.Tx, _, _ string, _, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores++
	return nil
}

func (s *stubRecordRepo) FindRecordBySessionID(_ context.Context, sessionID string) (*model.GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.SessionID == sessionID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *stubRecordRepo) GetGlobalLeaderboard(_ context.Context, _ int) ([]model.GlobalLeaderboardEntry, error) {
	return nil, nil
}

func (s *stubRecordRepo) scoreCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores
}

type stubEnqueuer struct {
	mu   sync.Mutex
	jobs []*model.GradingJob
	err  error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, job *model.GradingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *stubEnqueuer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func newTestGame(t *testing.T) (*GameService, *RoomService, *stubEnqueuer, string) {
	t.Helper()
	ctx := context.Background()
	bus := event.NewBus()
	rooms := NewRoomService(bus, nil)
	enq := &stubEnqueuer{}
	game := NewGameService(rooms, bus, enq, nil, nil, nil, 3)

	room, err := rooms.Create(ctx, CreateRoomRequest{Name: "arena", MaxPlayers: 4, GameMode: model.ModeBlitz})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rooms.Join(ctx, room.ID, &model.Player{ID: "p1", Username: "ada"}); err != nil {
		t.Fatal(err)
	}
	if _, err := rooms.Join(ctx, room.ID, &model.Player{ID: "p2", Username: "bob"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { game.Teardown(ctx, room.ID) })
	return game, rooms, enq, room.ID
}

func TestGameStartAssignsRolesAndArmsClock(t *testing.T) {
	game, rooms, _, roomID := newTestGame(t)
	ctx := context.Background()

	session, err := game.Start(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != model.SessionActive {
		t.Errorf("status %s, want active", session.Status)
	}
	if session.TimeRemaining != 900 {
		t.Errorf("blitz countdown %d, want 900", session.TimeRemaining)
	}

	// With two players both roles must be represented, exactly once.
	hackers, detectives := 0, 0
	for _, p := range rooms.Players(roomID) {
		switch p.Role {
		case model.GameRoleHacker:
			hackers++
		case model.GameRoleDetective:
			detectives++
		default:
			t.Errorf("player %s has no role", p.ID)
		}
	}
	if hackers != 1 || detectives != 1 {
		t.Errorf("got %d hackers and %d detectives, want 1 and 1", hackers, detectives)
	}

	room, err := rooms.Get(roomID)
	if err != nil {
		t.Fatal(err)
	}
	if room.Status != model.RoomActive {
		t.Errorf("room status %s, want active", room.Status)
	}

	if _, err := game.Start(ctx, roomID); !errors.Is(err, common.ErrInvalidTransition) {
		t.Errorf("double start: got %v, want ErrInvalidTransition", err)
	}
}

func TestGamePauseResume(t *testing.T) {
	game, _, _, roomID := newTestGame(t)
	ctx := context.Background()

	if _, err := game.Pause(ctx, roomID); !errors.Is(err, common.ErrSessionClosed) {
		t.Errorf("pause before start: got %v, want ErrSessionClosed", err)
	}

	if _, err := game.Start(ctx, roomID); err != nil {
		t.Fatal(err)
	}
	session, err := game.Pause(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != model.SessionPaused {
		t.Errorf("status %s, want paused", session.Status)
	}

	remaining := session.TimeRemaining
	game.Tick(ctx, roomID) // clock fires regardless, must not move a paused session
	paused, err := game.Session(roomID)
	if err != nil {
		t.Fatal(err)
	}
	if paused.TimeRemaining != remaining {
		t.Errorf("paused countdown moved %d -> %d", remaining, paused.TimeRemaining)
	}

	resumed, err := game.Resume(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.Status != model.SessionActive {
		t.Errorf("status %s, want active", resumed.Status)
	}
}

func TestSubmitEnforcesRoleAndState(t *testing.T) {
	game, rooms, enq, roomID := newTestGame(t)
	ctx := context.Background()

	sub := &model.Submission{
		RoomID:   roomID,
		PlayerID: "p1",
		TargetID: "task-1",
		Kind:     model.KindCode,
		Language: "python",
		Code:     "print(1)",
	}

	if _, err := game.Submit(ctx, sub); !errors.Is(err, common.ErrSessionClosed) {
		t.Errorf("submit before start: got %v, want ErrSessionClosed", err)
	}

	if _, err := game.Start(ctx, roomID); err != nil {
		t.Fatal(err)
	}

	// Find who got which role so the test is independent of the shuffle.
	var hackerID, detectiveID string
	for _, p := range rooms.Players(roomID) {
		if p.Role == model.GameRoleHacker {
			hackerID = p.ID
		} else {
			detectiveID = p.ID
		}
	}

	sub.PlayerID = detectiveID
	if _, err := game.Submit(ctx, sub); !errors.Is(err, common.ErrForbidden) {
		t.Errorf("code submission by detective: got %v, want ErrForbidden", err)
	}

	sub.PlayerID = hackerID
	accepted, err := game.Submit(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if accepted.ID == "" {
		t.Error("accepted submission has no id")
	}
	if enq.count() != 1 {
		t.Errorf("%d jobs enqueued, want 1", enq.count())
	}

	if _, err := game.Pause(ctx, roomID); err != nil {
		t.Fatal(err)
	}
	if _, err := game.Submit(ctx, sub); !errors.Is(err, common.ErrInvalidTransition) {
		t.Errorf("submit while paused: got %v, want ErrInvalidTransition", err)
	}
}

func TestApplyResultUpdatesScores(t *testing.T) {
	game, rooms, _, roomID := newTestGame(t)
	ctx := context.Background()

	if _, err := game.Start(ctx, roomID); err != nil {
		t.Fatal(err)
	}

	result := &model.SubmissionResult{
		SubmissionID:  "sub-1",
		RoomID:        roomID,
		PlayerID:      "p1",
		Success:       true,
		Score:         100,
		PointsAwarded: 150,
	}
	if err := game.ApplyResult(ctx, result); err != nil {
		t.Fatal(err)
	}

	board, err := game.Leaderboard(roomID)
	if err != nil {
		t.Fatal(err)
	}
	if board[0].PlayerID != "p1" || board[0].Score != 150 {
		t.Errorf("top entry %v, want p1 with 150", board[0])
	}

	player, err := rooms.GetPlayer(roomID, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if player.Score != 150 {
		t.Errorf("roster score %d, want 150", player.Score)
	}

	// Failed results change nothing.
	if err := game.ApplyResult(ctx, &model.SubmissionResult{SubmissionID: "sub-2", RoomID: roomID, PlayerID: "p2"}); err != nil {
		t.Fatal(err)
	}
	board, _ = game.Leaderboard(roomID)
	for _, e := range board {
		if e.PlayerID == "p2" && e.Score != 0 {
			t.Errorf("failed submission moved p2's score to %d", e.Score)
		}
	}
}

func TestSessionClosedAfterTeardown(t *testing.T) {
	game, _, _, roomID := newTestGame(t)
	ctx := context.Background()

	if _, err := game.Start(ctx, roomID); err != nil {
		t.Fatal(err)
	}
	game.Teardown(ctx, roomID)

	session, err := game.Session(roomID)
	if err != nil {
		t.Fatal(err)
	}
	if !session.Finished() {
		t.Errorf("session status %s after teardown, want finished", session.Status)
	}

	sub := &model.Submission{RoomID: roomID, PlayerID: "p1", TargetID: "t", Kind: model.KindCode, Language: "python", Code: "x"}
	if _, err := game.Submit(ctx, sub); !errors.Is(err, common.ErrSessionClosed) {
		t.Errorf("submit after teardown: got %v, want ErrSessionClosed", err)
	}
	result := &model.SubmissionResult{SubmissionID: "late", RoomID: roomID, PlayerID: "p1", Success: true, PointsAwarded: 10}
	if err := game.ApplyResult(ctx, result); !errors.Is(err, common.ErrSessionClosed) {
		t.Errorf("late result: got %v, want ErrSessionClosed", err)
	}
}

func TestFinishedSessionPersistsRecord(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rooms := NewRoomService(bus, nil)
	repo := &stubRecordRepo{}
	game := NewGameService(rooms, bus, &stubEnqueuer{}, nil, repo, nil, 3)

	room, err := rooms.Create(ctx, CreateRoomRequest{Name: "arena", MaxPlayers: 4, GameMode: model.ModeBlitz})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rooms.Join(ctx, room.ID, &model.Player{ID: "p1", Username: "ada"}); err != nil {
		t.Fatal(err)
	}
	if _, err := rooms.Join(ctx, room.ID, &model.Player{ID: "p2", Username: "bob"}); err != nil {
		t.Fatal(err)
	}

	session, err := game.Start(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if session.ID == "" {
		t.Fatal("session has no id")
	}

	result := &model.SubmissionResult{SubmissionID: "sub-1", RoomID: room.ID, PlayerID: "p1", Success: true, Score: 100, PointsAwarded: 150}
	if err := game.ApplyResult(ctx, result); err != nil {
		t.Fatal(err)
	}
	game.Teardown(ctx, room.ID)

	record, err := game.Record(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if record.SessionID != session.ID {
		t.Errorf("record session id %s, want %s", record.SessionID, session.ID)
	}
	if record.RoomID != room.ID {
		t.Errorf("record room id %s, want %s", record.RoomID, room.ID)
	}
	if record.WinnerID != "p1" || record.WinnerScore != 150 {
		t.Errorf("winner %s with %d, want p1 with 150", record.WinnerID, record.WinnerScore)
	}
	if record.PlayerCount != 2 {
		t.Errorf("player count %d, want 2", record.PlayerCount)
	}
	if repo.scoreCount() != 2 {
		t.Errorf("%d player scores persisted, want 2", repo.scoreCount())
	}

	if _, err := game.Record(ctx, "no-such-session"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("unknown session id: got %v, want ErrNotFound", err)
	}
}

func TestAdvanceRoundThroughFinish(t *testing.T) {
	game, rooms, _, roomID := newTestGame(t)
	ctx := context.Background()

	if _, err := game.Start(ctx, roomID); err != nil {
		t.Fatal(err)
	}
	for round := 2; round <= 3; round++ {
		session, err := game.AdvanceRound(ctx, roomID)
		if err != nil {
			t.Fatal(err)
		}
		if session.CurrentRound != round {
			t.Errorf("round %d, want %d", session.CurrentRound, round)
		}
	}
	session, err := game.AdvanceRound(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if !session.Finished() {
		t.Error("advancing past the final round should finish the session")
	}
	room, err := rooms.Get(roomID)
	if err != nil {
		t.Fatal(err)
	}
	if room.Status != model.RoomFinished {
		t.Errorf("room status %s, want finished", room.Status)
	}
}
