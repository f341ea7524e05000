package service

import (
	"codetective/internal/domain/model"
	"codetective/internal/domain/repository"
	"context"
	"fmt"
	"sort"
	"sync"
)

// LeaderboardAggregator keeps one session's standings. Updates are
// serialized by a mutex so concurrent submission results cannot lose a
// delta; snapshots are pure reads of copied state.
type LeaderboardAggregator struct {
	mu      sync.Mutex
	entries map[string]*model.LeaderboardEntry
	order   []string // player ids, first-seen order; breaks score ties
}

func NewLeaderboardAggregator() *LeaderboardAggregator {
	return &LeaderboardAggregator{entries: make(map[string]*model.LeaderboardEntry)}
}

// Track registers a player with a zero score so the board shows the full
// roster from the first snapshot.
func (a *LeaderboardAggregator) Track(playerID, username string, role model.GameRole) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[playerID]; ok {
		a.entries[playerID].Role = role
		return
	}
	a.entries[playerID] = &model.LeaderboardEntry{PlayerID: playerID, Username: username, Role: role}
	a.order = append(a.order, playerID)
}

// Update applies a score delta atomically. Unknown players are admitted
// on first update (a submission can race the roster broadcast).
func (a *LeaderboardAggregator) Update(playerID, username string, delta int, solved bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.entries[playerID]
	if !ok {
		entry = &model.LeaderboardEntry{PlayerID: playerID, Username: username}
		a.entries[playerID] = entry
		a.order = append(a.order, playerID)
	}
	entry.Score += delta
	if entry.Score < 0 {
		entry.Score = 0
	}
	if solved {
		entry.TasksCompleted++
	}
}

// Snapshot returns the standings sorted descending by score. Ties keep
// first-seen order, and repeated calls with no intervening update return
// identical output.
func (a *LeaderboardAggregator) Snapshot() []model.LeaderboardEntry {
	a.mu.Lock()
	out := make([]model.LeaderboardEntry, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.entries[id])
	}
	a.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Leader returns the current top entry, if any.
func (a *LeaderboardAggregator) Leader() (model.LeaderboardEntry, bool) {
	snapshot := a.Snapshot()
	if len(snapshot) == 0 {
		return model.LeaderboardEntry{}, false
	}
	return snapshot[0], true
}

// LeaderboardService serves the persisted cross-session standings; the
// live per-session boards belong to their GameSession.
type LeaderboardService struct {
	recordRepo repository.GameRecordRepository
}

func NewLeaderboardService(recordRepo repository.GameRecordRepository) *LeaderboardService {
	return &LeaderboardService{recordRepo: recordRepo}
}

func (s *LeaderboardService) Global(ctx context.Context, limit int) ([]model.GlobalLeaderboardEntry, error) {
	entries, err := s.recordRepo.GetGlobalLeaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load global leaderboard: %w", err)
	}
	return entries, nil
}
