package event

import (
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishReachesRoomSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("room-1", 4)
	defer sub.Unsubscribe()

	bus.Publish(Event{Type: GameStarted, RoomID: "room-1"})
	evt := receive(t, sub.C)
	if evt.Type != GameStarted || evt.RoomID != "room-1" {
		t.Errorf("got %+v", evt)
	}
	if evt.At.IsZero() {
		t.Error("publish should stamp the event time")
	}
}

func TestRoomFilteringAndWildcard(t *testing.T) {
	bus := NewBus()
	roomSub := bus.Subscribe("room-1", 4)
	defer roomSub.Unsubscribe()
	allSub := bus.Subscribe("", 4)
	defer allSub.Unsubscribe()

	bus.Publish(Event{Type: PlayerJoined, RoomID: "room-2"})

	// The wildcard subscriber sees it, the room-1 subscriber must not.
	evt := receive(t, allSub.C)
	if evt.RoomID != "room-2" {
		t.Errorf("wildcard got %+v", evt)
	}
	select {
	case evt := <-roomSub.C:
		t.Errorf("room-1 subscriber received foreign event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("room-1", 4)
	if bus.SubscriberCount() != 1 {
		t.Fatalf("subscriber count %d, want 1", bus.SubscriberCount())
	}

	sub.Unsubscribe()
	sub.Unsubscribe() // second call must not panic on the closed channel
	if bus.SubscriberCount() != 0 {
		t.Errorf("subscriber count %d after unsubscribe, want 0", bus.SubscriberCount())
	}

	bus.Publish(Event{Type: TimerUpdate, RoomID: "room-1"})
	if _, ok := <-sub.C; ok {
		t.Error("received event on an unsubscribed channel")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("room-1", 1)
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		// Buffer holds one event; the rest are dropped, never blocking.
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Type: TimerUpdate, RoomID: "room-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	evt := receive(t, sub.C)
	if evt.Type != TimerUpdate {
		t.Errorf("got %+v", evt)
	}
}
