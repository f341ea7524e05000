package service

import (
	"codetective/internal/app/event"
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"codetective/internal/domain/repository"
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GradingEnqueuer hands a submission to the async grading pipeline.
// The Redis-backed queue implements it in production; tests substitute
// an in-process stub.
type GradingEnqueuer interface {
	Enqueue(ctx context.Context, job *model.GradingJob) error
}

// sessionState bundles everything scoped to one live session. There is
// no ambient global: each room gets its own instance, created at start
// and torn down with the session.
type sessionState struct {
	session     *model.GameSession
	board       *LeaderboardAggregator
	cancelClock context.CancelFunc
}

// GameService owns the per-room session state machines: lifecycle
// transitions, the one-second clock, role assignment, submission intake,
// and result application.
type GameService struct {
	mu       sync.Mutex
	sessions map[string]*sessionState // roomID -> state

	rooms      *RoomService
	bus        *event.Bus
	enqueuer   GradingEnqueuer
	playerRepo repository.PlayerRepository     // optional
	recordRepo repository.GameRecordRepository // optional
	db         *sql.DB                         // optional, for record transactions

	totalRounds int
	rng         *rand.Rand
}

func NewGameService(
	rooms *RoomService,
	bus *event.Bus,
	enqueuer GradingEnqueuer,
	playerRepo repository.PlayerRepository,
	recordRepo repository.GameRecordRepository,
	db *sql.DB,
	totalRounds int,
) *GameService {
	return &GameService{
		sessions:    make(map[string]*sessionState),
		rooms:       rooms,
		bus:         bus,
		enqueuer:    enqueuer,
		playerRepo:  playerRepo,
		recordRepo:  recordRepo,
		db:          db,
		totalRounds: totalRounds,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start transitions a waiting room into an active session: assigns every
// player a role, arms the countdown for the room's game mode, and starts
// the clock goroutine.
func (s *GameService) Start(ctx context.Context, roomID string) (*model.GameSession, error) {
	room, err := s.rooms.Get(roomID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.sessions[roomID]; ok && !existing.session.Finished() {
		s.mu.Unlock()
		return nil, fmt.Errorf("room %s already has a running session: %w", roomID, common.ErrInvalidTransition)
	}

	players := s.rooms.Players(roomID)
	if len(players) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("cannot start a session with no players: %w", common.ErrValidation)
	}

	session := model.NewGameSession(roomID, room.GameMode, s.totalRounds)
	if room.Status == model.RoomStarting {
		session.Status = model.SessionStarting
	} else if room.Status != model.RoomWaiting {
		s.mu.Unlock()
		return nil, fmt.Errorf("room %s is %s: %w", roomID, room.Status, common.ErrInvalidTransition)
	}
	if err := session.Start(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	board := NewLeaderboardAggregator()
	roles := s.assignRolesLocked(players)
	for _, p := range players {
		board.Track(p.ID, p.Username, roles[p.ID])
	}

	clockCtx, cancel := context.WithCancel(context.Background())
	st := &sessionState{session: session, board: board, cancelClock: cancel}
	s.sessions[roomID] = st
	snapshot := *session
	s.mu.Unlock()

	for playerID, role := range roles {
		s.rooms.AssignRole(roomID, playerID, role)
	}
	if _, err := s.rooms.SetStatus(ctx, roomID, model.RoomActive); err != nil {
		log.Printf("WARN: failed to mark room %s active: %v", roomID, err)
	}

	go s.runClock(clockCtx, roomID)

	s.bus.Publish(event.Event{Type: event.GameStarted, RoomID: roomID, Payload: map[string]any{
		"session": &snapshot,
		"players": s.rooms.Players(roomID),
	}})
	log.Printf("Session for room %s started (%s, %ds, %d players)", roomID, snapshot.GameMode, snapshot.TimeRemaining, len(players))
	return &snapshot, nil
}

// assignRolesLocked splits players into hackers and detectives once, at
// start. A shuffled alternating split keeps the teams balanced and, with
// two or more players, guarantees both roles are represented.
func (s *GameService) assignRolesLocked(players []*model.Player) map[string]model.GameRole {
	shuffled := make([]*model.Player, len(players))
	copy(shuffled, players)
	s.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	roles := make(map[string]model.GameRole, len(shuffled))
	for i, p := range shuffled {
		if i%2 == 0 {
			roles[p.ID] = model.GameRoleHacker
		} else {
			roles[p.ID] = model.GameRoleDetective
		}
	}
	return roles
}

// runClock fires the session's Tick exactly once per second. Pausing
// does not stop the ticker; Tick is a no-op outside active, which keeps
// the countdown aligned with wall-clock time without catch-up jumps.
func (s *GameService) runClock(ctx context.Context, roomID string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, roomID)
		}
	}
}

// Tick advances the countdown by one second. Exposed for the clock and
// for tests; calling it on a missing or finished session is a no-op.
func (s *GameService) Tick(ctx context.Context, roomID string) {
	s.mu.Lock()
	st, ok := s.sessions[roomID]
	if !ok || st.session.Finished() {
		s.mu.Unlock()
		return
	}
	wasActive := st.session.Status == model.SessionActive
	st.session.Tick()
	snapshot := *st.session
	s.mu.Unlock()

	if !wasActive {
		return
	}
	s.bus.Publish(event.Event{Type: event.TimerUpdate, RoomID: roomID, Payload: map[string]any{
		"time_remaining": snapshot.TimeRemaining,
		"current_round":  snapshot.CurrentRound,
	}})
	if snapshot.Finished() {
		s.finalize(ctx, roomID)
	}
}

func (s *GameService) Pause(ctx context.Context, roomID string) (*model.GameSession, error) {
	return s.transition(ctx, roomID, model.RoomPaused, event.GamePaused, (*model.GameSession).Pause)
}

func (s *GameService) Resume(ctx context.Context, roomID string) (*model.GameSession, error) {
	return s.transition(ctx, roomID, model.RoomActive, event.GameResumed, (*model.GameSession).Resume)
}

func (s *GameService) transition(ctx context.Context, roomID string, roomStatus model.RoomStatus, evtType event.Type, move func(*model.GameSession) error) (*model.GameSession, error) {
	s.mu.Lock()
	st, ok := s.sessions[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("no session for room %s: %w", roomID, common.ErrSessionClosed)
	}
	if err := move(st.session); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snapshot := *st.session
	s.mu.Unlock()

	if _, err := s.rooms.SetStatus(ctx, roomID, roomStatus); err != nil {
		log.Printf("WARN: failed to mirror room %s status: %v", roomID, err)
	}
	s.bus.Publish(event.Event{Type: evtType, RoomID: roomID, Payload: &snapshot})
	return &snapshot, nil
}

// AdvanceRound moves the session to the next round, finishing it when
// the final round completes.
func (s *GameService) AdvanceRound(ctx context.Context, roomID string) (*model.GameSession, error) {
	s.mu.Lock()
	st, ok := s.sessions[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("no session for room %s: %w", roomID, common.ErrSessionClosed)
	}
	if err := st.session.AdvanceRound(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snapshot := *st.session
	s.mu.Unlock()

	s.bus.Publish(event.Event{Type: event.RoundAdvanced, RoomID: roomID, Payload: &snapshot})
	if snapshot.Finished() {
		s.finalize(ctx, roomID)
	}
	return &snapshot, nil
}

// Submit validates a submission against the live session and hands it to
// the grading pipeline. The graded result arrives asynchronously through
// ApplyResult, attributed by the submission id.
func (s *GameService) Submit(ctx context.Context, sub *model.Submission) (*model.Submission, error) {
	s.mu.Lock()
	st, ok := s.sessions[sub.RoomID]
	if !ok || st.session.Finished() {
		s.mu.Unlock()
		return nil, fmt.Errorf("no live session for room %s: %w", sub.RoomID, common.ErrSessionClosed)
	}
	if st.session.Status != model.SessionActive {
		s.mu.Unlock()
		return nil, fmt.Errorf("session for room %s is %s: %w", sub.RoomID, st.session.Status, common.ErrInvalidTransition)
	}
	s.mu.Unlock()

	player, err := s.rooms.GetPlayer(sub.RoomID, sub.PlayerID)
	if err != nil {
		return nil, err
	}
	// Submissions follow the persona assigned at start: hackers write
	// code, detectives answer puzzles.
	if sub.Kind == model.KindCode && player.Role != model.GameRoleHacker {
		return nil, fmt.Errorf("player %s is not a hacker: %w", player.Username, common.ErrForbidden)
	}
	if sub.Kind == model.KindPuzzle && player.Role != model.GameRoleDetective {
		return nil, fmt.Errorf("player %s is not a detective: %w", player.Username, common.ErrForbidden)
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.SubmittedAt = time.Now()

	job := &model.GradingJob{Submission: *sub, EnqueuedAt: time.Now()}
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue submission %s: %w", sub.ID, err)
	}
	log.Printf("Submission %s (player %s, room %s) enqueued for grading", sub.ID, sub.PlayerID, sub.RoomID)
	return sub, nil
}

// ApplyResult attributes a graded result back to its session, applies
// the score delta atomically, and broadcasts the updated standings.
// Results for sessions that finished in the meantime are rejected, not
// silently dropped.
func (s *GameService) ApplyResult(ctx context.Context, result *model.SubmissionResult) error {
	s.mu.Lock()
	st, ok := s.sessions[result.RoomID]
	if !ok || st.session.Finished() {
		s.mu.Unlock()
		return fmt.Errorf("result %s arrived after session close: %w", result.SubmissionID, common.ErrSessionClosed)
	}
	board := st.board
	s.mu.Unlock()

	player, err := s.rooms.GetPlayer(result.RoomID, result.PlayerID)
	if err != nil {
		return fmt.Errorf("result %s for unknown player: %w", result.SubmissionID, err)
	}

	if result.Success && result.PointsAwarded > 0 {
		board.Update(player.ID, player.Username, result.PointsAwarded, true)
		s.rooms.AddScore(result.RoomID, player.ID, result.PointsAwarded)
		s.bus.Publish(event.Event{Type: event.ScoreUpdate, RoomID: result.RoomID, Payload: map[string]any{
			"player_id": player.ID,
			"delta":     result.PointsAwarded,
		}})
		s.bus.Publish(event.Event{Type: event.LeaderboardUpdate, RoomID: result.RoomID, Payload: board.Snapshot()})
	}
	s.bus.Publish(event.Event{Type: event.SubmissionResult, RoomID: result.RoomID, Payload: result})
	return nil
}

// Leave removes a player mid-session; an emptied room tears the session
// down entirely.
func (s *GameService) Leave(ctx context.Context, roomID, playerID string) error {
	room, err := s.rooms.Leave(ctx, roomID, playerID)
	if err != nil {
		return err
	}
	if room.CurrentPlayers <= 0 {
		s.Teardown(ctx, roomID)
	}
	return nil
}

// Teardown stops the clock and closes the session immediately. Further
// submissions fail with a session-closed error.
func (s *GameService) Teardown(ctx context.Context, roomID string) {
	s.mu.Lock()
	st, ok := s.sessions[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	st.cancelClock()
	alreadyFinished := st.session.Finished()
	if !alreadyFinished {
		st.session.Finish()
	}
	s.mu.Unlock()

	if !alreadyFinished {
		s.finalize(ctx, roomID)
	}
}

// Session returns a snapshot of the room's session.
func (s *GameService) Session(roomID string) (*model.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[roomID]
	if !ok {
		return nil, fmt.Errorf("no session for room %s: %w", roomID, common.ErrNotFound)
	}
	snapshot := *st.session
	return &snapshot, nil
}

// Leaderboard returns the room's live standings.
func (s *GameService) Leaderboard(roomID string) ([]model.LeaderboardEntry, error) {
	s.mu.Lock()
	st, ok := s.sessions[roomID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no session for room %s: %w", roomID, common.ErrNotFound)
	}
	return st.board.Snapshot(), nil
}

// finalize runs exactly the parts of session shutdown that need the
// session already marked finished: stop the clock, persist the outcome,
// and broadcast the final standings.
func (s *GameService) finalize(ctx context.Context, roomID string) {
	s.mu.Lock()
	st, ok := s.sessions[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	st.cancelClock()
	if !st.session.Finished() {
		st.session.Finish()
	}
	snapshot := *st.session
	board := st.board
	s.mu.Unlock()

	if _, err := s.rooms.SetStatus(ctx, roomID, model.RoomFinished); err != nil {
		log.Printf("WARN: failed to mark room %s finished: %v", roomID, err)
	}

	standings := board.Snapshot()
	s.bus.Publish(event.Event{Type: event.GameEnded, RoomID: roomID, Payload: map[string]any{
		"session":     &snapshot,
		"leaderboard": standings,
	}})
	log.Printf("Session for room %s finished after %ds (%d players)", roomID, snapshot.Elapsed(), len(standings))

	s.persistOutcome(ctx, roomID, &snapshot, standings)
}

// Record returns the persisted outcome of a finished session, keyed by
// the session id carried on GameSession.
func (s *GameService) Record(ctx context.Context, sessionID string) (*model.GameRecord, error) {
	if s.recordRepo == nil {
		return nil, common.ErrNotFound
	}
	return s.recordRepo.FindRecordBySessionID(ctx, sessionID)
}

// persistOutcome writes the game record, per-player scores, and profile
// win/loss counters, in one transaction when a database is wired.
// Persistence is best-effort: a storage failure is logged, never
// propagated into the game loop.
func (s *GameService) persistOutcome(ctx context.Context, roomID string, session *model.GameSession, standings []model.LeaderboardEntry) {
	if s.recordRepo == nil {
		return
	}

	record := &model.GameRecord{
		ID:              uuid.NewString(),
		SessionID:       session.ID,
		RoomID:          roomID,
		GameMode:        session.GameMode,
		DurationSeconds: session.Elapsed(),
		PlayerCount:     len(standings),
	}
	if len(standings) > 0 {
		record.WinnerID = standings[0].PlayerID
		record.WinnerScore = standings[0].Score
	}

	var tx *sql.Tx
	if s.db != nil {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			log.Printf("ERROR: failed to begin transaction for game record: %v", err)
			return
		}
		defer tx.Rollback()
	}

	if err := s.recordRepo.CreateRecord(ctx, tx, record); err != nil {
		log.Printf("ERROR: failed to persist game record for room %s: %v", roomID, err)
		return
	}
	for _, entry := range standings {
		if err := s.recordRepo.CreatePlayerScore(ctx, tx, record.ID, entry.PlayerID, entry.Score, entry.TasksCompleted); err != nil {
			log.Printf("ERROR: failed to persist score for player %s: %v", entry.PlayerID, err)
			return
		}
		if s.playerRepo != nil {
			won := entry.PlayerID == record.WinnerID
			if err := s.playerRepo.RecordGameOutcome(ctx, tx, entry.PlayerID, won); err != nil {
				log.Printf("ERROR: failed to update profile for player %s: %v", entry.PlayerID, err)
				return
			}
		}
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			log.Printf("ERROR: failed to commit game record for room %s: %v", roomID, err)
			return
		}
	}
	log.Printf("Game record %s persisted for room %s", record.ID, roomID)
}
