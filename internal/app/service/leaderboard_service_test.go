package service

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"codetective/internal/domain/model"
)

func TestLeaderboardOrderingAndTies(t *testing.T) {
	board := NewLeaderboardAggregator()
	board.Track("p1", "ada", model.GameRoleHacker)
	board.Track("p2", "bob", model.GameRoleDetective)
	board.Track("p3", "eve", model.GameRoleHacker)

	board.Update("p2", "bob", 100, true)
	board.Update("p1", "ada", 50, true)
	board.Update("p3", "eve", 50, true) // ties p1; p1 was seen first

	snapshot := board.Snapshot()
	gotOrder := []string{snapshot[0].PlayerID, snapshot[1].PlayerID, snapshot[2].PlayerID}
	wantOrder := []string{"p2", "p1", "p3"}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Errorf("order %v, want %v", gotOrder, wantOrder)
	}
	for i, e := range snapshot {
		if e.Rank != i+1 {
			t.Errorf("entry %d has rank %d", i, e.Rank)
		}
	}
}

func TestLeaderboardSnapshotIdempotent(t *testing.T) {
	board := NewLeaderboardAggregator()
	board.Track("p1", "ada", model.GameRoleHacker)
	board.Track("p2", "bob", model.GameRoleDetective)
	board.Update("p1", "ada", 100, true)
	board.Update("p2", "bob", 100, true)

	first := board.Snapshot()
	for i := 0; i < 5; i++ {
		if next := board.Snapshot(); !reflect.DeepEqual(first, next) {
			t.Fatalf("snapshot %d differs: %v vs %v", i, first, next)
		}
	}
}

func TestLeaderboardScoreFloorsAtZero(t *testing.T) {
	board := NewLeaderboardAggregator()
	board.Track("p1", "ada", model.GameRoleHacker)
	board.Update("p1", "ada", -30, false)

	snapshot := board.Snapshot()
	if snapshot[0].Score != 0 {
		t.Errorf("score %d, want floor at 0", snapshot[0].Score)
	}
}

func TestLeaderboardAdmitsUnknownPlayerOnUpdate(t *testing.T) {
	board := NewLeaderboardAggregator()
	board.Update("p9", "late", 40, true)

	snapshot := board.Snapshot()
	if len(snapshot) != 1 || snapshot[0].PlayerID != "p9" || snapshot[0].Score != 40 {
		t.Errorf("unexpected snapshot %v", snapshot)
	}
}

func TestLeaderboardConcurrentUpdates(t *testing.T) {
	board := NewLeaderboardAggregator()
	const players = 4
	const updatesEach = 100

	var wg sync.WaitGroup
	for p := 0; p < players; p++ {
		id := fmt.Sprintf("p%d", p)
		board.Track(id, id, model.GameRoleHacker)
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < updatesEach; i++ {
				board.Update(id, id, 1, true)
			}
		}(id)
	}
	wg.Wait()

	for _, e := range board.Snapshot() {
		if e.Score != updatesEach {
			t.Errorf("player %s score %d, want %d (lost updates)", e.PlayerID, e.Score, updatesEach)
		}
		if e.TasksCompleted != updatesEach {
			t.Errorf("player %s solved count %d, want %d", e.PlayerID, e.TasksCompleted, updatesEach)
		}
	}
}

func TestLeaderboardLeader(t *testing.T) {
	board := NewLeaderboardAggregator()
	if _, ok := board.Leader(); ok {
		t.Error("empty board reported a leader")
	}
	board.Update("p1", "ada", 10, true)
	board.Update("p2", "bob", 20, true)
	leader, ok := board.Leader()
	if !ok || leader.PlayerID != "p2" {
		t.Errorf("leader = %v ok=%v, want p2", leader, ok)
	}
}
