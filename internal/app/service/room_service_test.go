package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"codetective/internal/app/event"
	"codetective/internal/common"
	"codetective/internal/domain/model"
)

func newTestRoomService() *RoomService {
	return NewRoomService(event.NewBus(), nil)
}

func TestCreateRoomValidation(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateRoomRequest{Name: "  ", MaxPlayers: 4}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("blank name: got %v, want ErrValidation", err)
	}
	if _, err := svc.Create(ctx, CreateRoomRequest{Name: "heist", MaxPlayers: 0}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("zero capacity: got %v, want ErrValidation", err)
	}
	if _, err := svc.Create(ctx, CreateRoomRequest{Name: "heist", MaxPlayers: 4, GameMode: "speedrun"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("unknown mode: got %v, want ErrValidation", err)
	}
}

func TestCreateRoomDefaults(t *testing.T) {
	svc := newTestRoomService()
	room, err := svc.Create(context.Background(), CreateRoomRequest{Name: "heist", MaxPlayers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if room.GameMode != model.ModeClassic {
		t.Errorf("default mode %s, want classic", room.GameMode)
	}
	if room.Status != model.RoomWaiting {
		t.Errorf("new room status %s, want waiting", room.Status)
	}
	if room.JoinCode != "" {
		t.Errorf("public room got a join code %q", room.JoinCode)
	}
}

func TestPrivateRoomJoinCode(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()
	room, err := svc.Create(ctx, CreateRoomRequest{Name: "secret", MaxPlayers: 4, IsPrivate: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(room.JoinCode) != joinCodeLength {
		t.Fatalf("join code %q, want %d characters", room.JoinCode, joinCodeLength)
	}

	// Codes match case-insensitively.
	joined, err := svc.JoinByCode(ctx, strings.ToLower(room.JoinCode), &model.Player{ID: "p1", Username: "ada"})
	if err != nil {
		t.Fatalf("JoinByCode with lowercase code failed: %v", err)
	}
	if joined.ID != room.ID {
		t.Errorf("joined room %s, want %s", joined.ID, room.ID)
	}

	if _, err := svc.JoinByCode(ctx, "ZZZZZZ", &model.Player{ID: "p2", Username: "bob"}); !errors.Is(err, common.ErrInvalidCode) {
		t.Errorf("bad code: got %v, want ErrInvalidCode", err)
	}

	// Private rooms stay off the public listing.
	for _, r := range svc.ListJoinable() {
		if r.ID == room.ID {
			t.Error("private room appeared in the joinable listing")
		}
	}
}

func TestJoinDuplicateAndFull(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()
	room, err := svc.Create(ctx, CreateRoomRequest{Name: "duo", MaxPlayers: 2})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Join(ctx, room.ID, &model.Player{ID: "p1", Username: "ada"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, room.ID, &model.Player{ID: "p1", Username: "ada"}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("duplicate join: got %v, want ErrConflict", err)
	}
	if _, err := svc.Join(ctx, room.ID, &model.Player{ID: "p2", Username: "bob"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, room.ID, &model.Player{ID: "p3", Username: "eve"}); !errors.Is(err, common.ErrRoomFull) {
		t.Errorf("over capacity: got %v, want ErrRoomFull", err)
	}
}

func TestJoinRejectedWhenNotWaiting(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()
	room, err := svc.Create(ctx, CreateRoomRequest{Name: "busy", MaxPlayers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetStatus(ctx, room.ID, model.RoomActive); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, room.ID, &model.Player{ID: "p1", Username: "ada"}); !errors.Is(err, common.ErrNotJoinable) {
		t.Errorf("join active room: got %v, want ErrNotJoinable", err)
	}
}

func TestConcurrentJoinsNeverOvercommit(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	const capacity = 5
	const contenders = 50

	room, err := svc.Create(ctx, CreateRoomRequest{Name: "rush", MaxPlayers: capacity})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Join(ctx, room.ID, &model.Player{
				ID:       fmt.Sprintf("p%d", i),
				Username: fmt.Sprintf("player%d", i),
			})
		}(i)
	}
	wg.Wait()

	admitted, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, common.ErrRoomFull):
			rejected++
		default:
			t.Errorf("unexpected join error: %v", err)
		}
	}
	if admitted != capacity {
		t.Errorf("admitted %d players, want exactly %d", admitted, capacity)
	}
	if rejected != contenders-capacity {
		t.Errorf("rejected %d players, want %d", rejected, contenders-capacity)
	}

	final, err := svc.Get(room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.CurrentPlayers != capacity {
		t.Errorf("room reports %d players, want %d", final.CurrentPlayers, capacity)
	}
	if got := len(svc.Players(room.ID)); got != capacity {
		t.Errorf("roster has %d players, want %d", got, capacity)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()
	room, err := svc.Create(ctx, CreateRoomRequest{Name: "solo", MaxPlayers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, room.ID, &model.Player{ID: "p1", Username: "ada"}); err != nil {
		t.Fatal(err)
	}

	first, err := svc.Leave(ctx, room.ID, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if first.CurrentPlayers != 0 {
		t.Errorf("after leave: %d players, want 0", first.CurrentPlayers)
	}
	second, err := svc.Leave(ctx, room.ID, "p1")
	if err != nil {
		t.Fatalf("repeated leave errored: %v", err)
	}
	if second.CurrentPlayers != 0 {
		t.Errorf("repeated leave changed count to %d", second.CurrentPlayers)
	}
}
