package handler

import (
	"codetective/internal/app/event"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The game is served same-origin behind the API; cross-origin
	// restrictions belong to the deployment's proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler bridges the in-process event bus to websocket clients.
// Each connection gets its own subscription, torn down when the socket
// closes either way.
type EventsHandler struct {
	bus *event.Bus
}

func NewEventsHandler(bus *event.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

func (h *EventsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{roomID}", h.stream)
}

func (h *EventsHandler) stream(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: websocket upgrade failed for room %s: %v", roomID, err)
		return
	}

	sub := h.bus.Subscribe(roomID, 64)

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

// readPump discards client frames; its job is to notice the close and
// release the subscription so the bus does not fan out to a dead socket.
func (h *EventsHandler) readPump(conn *websocket.Conn, sub *event.Subscription) {
	defer func() {
		sub.Unsubscribe()
		conn.Close()
	}()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARN: websocket read error: %v", err)
			}
			return
		}
	}
}

func (h *EventsHandler) writePump(conn *websocket.Conn, sub *event.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case evt, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
