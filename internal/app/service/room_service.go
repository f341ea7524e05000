package service

import (
	"codetective/internal/app/event"
	"codetective/internal/common"
	"codetective/internal/domain/model"
	"codetective/internal/domain/repository"
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const joinCodeLength = 6

// RoomService is the authoritative room registry. All room and roster
// mutation happens under one mutex, which is what makes concurrent joins
// unable to overcommit capacity: the status/capacity check and the
// increment are a single critical section.
type RoomService struct {
	mu        sync.Mutex
	rooms     map[string]*model.Room
	players   map[string]map[string]*model.Player // roomID -> playerID -> player
	joinCodes map[string]string                   // upper-cased code -> roomID

	bus      *event.Bus
	roomRepo repository.RoomRepository // optional mirror, nil in tests
}

func NewRoomService(bus *event.Bus, roomRepo repository.RoomRepository) *RoomService {
	return &RoomService{
		rooms:     make(map[string]*model.Room),
		players:   make(map[string]map[string]*model.Player),
		joinCodes: make(map[string]string),
		bus:       bus,
		roomRepo:  roomRepo,
	}
}

type CreateRoomRequest struct {
	Name       string           `json:"name"`
	MaxPlayers int              `json:"max_players"`
	GameMode   model.GameMode   `json:"game_mode"`
	Difficulty model.Difficulty `json:"difficulty"`
	IsPrivate  bool             `json:"is_private"`
}

func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*model.Room, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("room name must not be empty: %w", common.ErrValidation)
	}
	if req.MaxPlayers <= 0 {
		return nil, fmt.Errorf("max players must be positive, got %d: %w", req.MaxPlayers, common.ErrValidation)
	}
	switch req.GameMode {
	case model.ModeClassic, model.ModeBlitz, model.ModeTournament:
	case "":
		req.GameMode = model.ModeClassic
	default:
		return nil, fmt.Errorf("unknown game mode %q: %w", req.GameMode, common.ErrValidation)
	}
	if req.Difficulty == "" {
		req.Difficulty = model.DifficultyMedium
	}

	room := &model.Room{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		MaxPlayers: req.MaxPlayers,
		Status:     model.RoomWaiting,
		GameMode:   req.GameMode,
		Difficulty: req.Difficulty,
		IsPrivate:  req.IsPrivate,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	if req.IsPrivate {
		code, err := s.uniqueJoinCodeLocked()
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		room.JoinCode = code
		s.joinCodes[code] = room.ID
	}
	s.rooms[room.ID] = room
	s.players[room.ID] = make(map[string]*model.Player)
	s.mu.Unlock()

	if s.roomRepo != nil {
		if err := s.roomRepo.Create(ctx, room); err != nil {
			// The registry already accepted the room; losing the mirror
			// record must not take the room down with it.
			log.Printf("WARN: failed to persist room %s: %v", room.ID, err)
		}
	}

	s.bus.Publish(event.Event{Type: event.RoomCreated, RoomID: room.ID, Payload: room})
	return room, nil
}

// ListJoinable returns public rooms still accepting players.
func (s *RoomService) ListJoinable() []model.Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Room
	for _, r := range s.rooms {
		if !r.IsPrivate && r.Joinable() {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *RoomService) Get(roomID string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, common.ErrNotFound)
	}
	snapshot := *room
	return &snapshot, nil
}

// Join admits a player. The capacity check and the increment share the
// registry lock, so N racing joins against k free slots produce exactly
// k admissions and N-k capacity errors with no partial state.
func (s *RoomService) Join(ctx context.Context, roomID string, player *model.Player) (*model.Room, error) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("room %s: %w", roomID, common.ErrNotFound)
	}
	if room.Status != model.RoomWaiting {
		s.mu.Unlock()
		return nil, fmt.Errorf("room %q is %s: %w", room.Name, room.Status, common.ErrNotJoinable)
	}
	if room.CurrentPlayers >= room.MaxPlayers {
		s.mu.Unlock()
		return nil, fmt.Errorf("room %q already has %d/%d players: %w", room.Name, room.CurrentPlayers, room.MaxPlayers, common.ErrRoomFull)
	}
	if _, already := s.players[roomID][player.ID]; already {
		s.mu.Unlock()
		return nil, fmt.Errorf("player %s already joined room %s: %w", player.ID, roomID, common.ErrConflict)
	}

	p := *player
	p.IsOnline = true
	p.JoinedAt = time.Now()
	s.players[roomID][p.ID] = &p
	room.CurrentPlayers++
	snapshot := *room
	s.mu.Unlock()

	s.mirrorStatus(ctx, &snapshot)
	s.bus.Publish(event.Event{Type: event.PlayerJoined, RoomID: roomID, Payload: &p})
	s.bus.Publish(event.Event{Type: event.RoomJoined, RoomID: roomID, Payload: &snapshot})
	return &snapshot, nil
}

// JoinByCode admits a player into a private room, matching the code
// case-insensitively.
func (s *RoomService) JoinByCode(ctx context.Context, code string, player *model.Player) (*model.Room, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	s.mu.Lock()
	roomID, ok := s.joinCodes[normalized]
	var joinable bool
	if ok {
		if room, exists := s.rooms[roomID]; exists {
			joinable = room.Joinable()
		}
	}
	s.mu.Unlock()

	if !ok || !joinable {
		return nil, fmt.Errorf("no joinable room for code %q: %w", code, common.ErrInvalidCode)
	}
	return s.Join(ctx, roomID, player)
}

// Leave removes a player and frees a slot. Unknown players are a no-op
// so repeated leaves (socket close plus explicit leave) stay safe.
func (s *RoomService) Leave(ctx context.Context, roomID, playerID string) (*model.Room, error) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("room %s: %w", roomID, common.ErrNotFound)
	}
	player, present := s.players[roomID][playerID]
	if present {
		delete(s.players[roomID], playerID)
		room.CurrentPlayers--
	}
	snapshot := *room
	s.mu.Unlock()

	if present {
		s.mirrorStatus(ctx, &snapshot)
		s.bus.Publish(event.Event{Type: event.PlayerLeft, RoomID: roomID, Payload: player})
	}
	return &snapshot, nil
}

// SetReady toggles a player's ready flag.
func (s *RoomService) SetReady(roomID, playerID string, ready bool) error {
	s.mu.Lock()
	player, ok := s.players[roomID][playerID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("player %s not in room %s: %w", playerID, roomID, common.ErrNotFound)
	}
	player.IsReady = ready
	p := *player
	s.mu.Unlock()

	s.bus.Publish(event.Event{Type: event.PlayerReady, RoomID: roomID, Payload: &p})
	return nil
}

// GetPlayer returns a copy of one roster entry.
func (s *RoomService) GetPlayer(roomID, playerID string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[roomID][playerID]
	if !ok {
		return nil, fmt.Errorf("player %s not in room %s: %w", playerID, roomID, common.ErrNotFound)
	}
	cp := *player
	return &cp, nil
}

// Players returns a copy of the current roster.
func (s *RoomService) Players(roomID string) []*model.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := s.players[roomID]
	out := make([]*model.Player, 0, len(roster))
	for _, p := range roster {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

// SetStatus is used by the game service to drive the room through its
// lifecycle alongside the session.
func (s *RoomService) SetStatus(ctx context.Context, roomID string, status model.RoomStatus) (*model.Room, error) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("room %s: %w", roomID, common.ErrNotFound)
	}
	room.Status = status
	snapshot := *room
	s.mu.Unlock()

	s.mirrorStatus(ctx, &snapshot)
	return &snapshot, nil
}

// AssignRole records the role picked for a player at session start.
func (s *RoomService) AssignRole(roomID, playerID string, role model.GameRole) {
	s.mu.Lock()
	if p, ok := s.players[roomID][playerID]; ok {
		p.Role = role
	}
	s.mu.Unlock()
}

// AddScore accumulates a player's room-scoped score.
func (s *RoomService) AddScore(roomID, playerID string, delta int) {
	s.mu.Lock()
	if p, ok := s.players[roomID][playerID]; ok {
		p.Score += delta
	}
	s.mu.Unlock()
}

// Remove tears down a room entirely (admin action or empty-room cleanup).
func (s *RoomService) Remove(ctx context.Context, roomID string) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if ok {
		if room.JoinCode != "" {
			delete(s.joinCodes, strings.ToUpper(room.JoinCode))
		}
		delete(s.rooms, roomID)
		delete(s.players, roomID)
	}
	s.mu.Unlock()

	if ok && s.roomRepo != nil {
		if err := s.roomRepo.Delete(ctx, roomID); err != nil {
			log.Printf("WARN: failed to delete room record %s: %v", roomID, err)
		}
	}
}

func (s *RoomService) mirrorStatus(ctx context.Context, room *model.Room) {
	if s.roomRepo == nil {
		return
	}
	if err := s.roomRepo.UpdateStatus(ctx, room.ID, room.Status, room.CurrentPlayers); err != nil {
		log.Printf("WARN: failed to mirror room %s status: %v", room.ID, err)
	}
}

const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // skips 0/O, 1/I

// uniqueJoinCodeLocked draws codes until one is unused. Caller holds the
// registry lock.
func (s *RoomService) uniqueJoinCodeLocked() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		buf := make([]byte, joinCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		for i := range buf {
			buf[i] = joinCodeAlphabet[int(buf[i])%len(joinCodeAlphabet)]
		}
		code := string(buf)
		if _, taken := s.joinCodes[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique join code: %w", common.ErrInternalServer)
}
