package event

import (
	"log"
	"sync"
	"time"
)

// Type enumerates the state-change notifications emitted to clients.
type Type string

const (
	RoomCreated       Type = "room-created"
	RoomJoined        Type = "room-joined"
	PlayerJoined      Type = "player-joined"
	PlayerLeft        Type = "player-left"
	PlayerReady       Type = "player-ready"
	GameStarted       Type = "game-started"
	GamePaused        Type = "game-paused"
	GameResumed       Type = "game-resumed"
	GameEnded         Type = "game-ended"
	RoundAdvanced     Type = "round-advanced"
	TimerUpdate       Type = "timer-update"
	ScoreUpdate       Type = "score-update"
	LeaderboardUpdate Type = "leaderboard-update"
	SubmissionResult  Type = "submission-result"
)

// Event carries the updated entity snapshot for one notification.
type Event struct {
	Type    Type      `json:"type"`
	RoomID  string    `json:"room_id,omitempty"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Subscription is the cancellation token handed to each subscriber.
// Unsubscribe is idempotent and must be called on teardown so handlers
// cannot leak across sessions.
type Subscription struct {
	id     int
	bus    *Bus
	C      <-chan Event
	ch     chan Event
	roomID string // empty subscribes to every room
	once   sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.id)
		close(s.ch)
	})
}

// Bus is an in-process publish-subscribe channel with typed messages.
// Publish never blocks: a subscriber that cannot keep up drops events
// rather than stalling the game loop.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*Subscription)}
}

// Subscribe registers a listener for a single room's events, or for all
// rooms when roomID is empty.
func (b *Bus) Subscribe(roomID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, bus: b, C: ch, ch: ch, roomID: roomID}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Publish fans the event out to every matching subscriber.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.roomID != "" && sub.roomID != evt.RoomID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			log.Printf("WARN: dropping %s event for slow subscriber (room %s)", evt.Type, evt.RoomID)
		}
	}
}

// SubscriberCount is used by teardown checks and tests.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
