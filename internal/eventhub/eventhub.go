// Package eventhub multiplexes lifecycle events from the Runtime onto
// WebSocket and in-process subscribers, delivering an initial snapshot to
// each new subscriber. The gorilla/websocket transport (writePump/readPump,
// ping/pong keep-alive) is generalized from one chat client per connection
// to one lifecycle-event fan-out per connection.
package eventhub

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pocketomega/pocket-omega/internal/agentcore"
	"github.com/pocketomega/pocket-omega/internal/tool"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Envelope is the wire shape of every message sent to a subscriber:
// lifecycle events forwarded verbatim, plus the one-shot snapshot.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type snapshotPayload struct {
	Tasks []agentcore.Task  `json:"tasks"`
	Tools []tool.Definition `json:"tools"`
}

// SnapshotSource supplies the state the Hub sends to a subscriber the
// moment it connects.
type SnapshotSource interface {
	ListTasks() []agentcore.Task
	ListTools() []tool.Definition
}

// subscriber is one connected consumer of the event stream, either a
// WebSocket client or an in-process channel subscriber.
type subscriber struct {
	id   string
	send chan Envelope
}

// Hub implements agentcore.Emitter: Runtime and Orchestrator events pushed
// to Emit are fanned out to every live subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	snapshot    SnapshotSource
	upgrader    websocket.Upgrader
	nextID      uint64
}

// New constructs a Hub. snapshot supplies the task/tool state sent to each
// new subscriber; it may be nil at construction and set later with
// SetSnapshotSource, since the Hub and the Runtime it snapshots are
// typically constructed in sequence (the Runtime takes the Hub as its
// Emitter, so the Hub must exist first).
func New(snapshot SnapshotSource) *Hub {
	return &Hub{
		subscribers: make(map[string]*subscriber),
		snapshot:    snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The HTTP surface is bound to loopback only (no auth layer);
			// same-origin is not required for a single-process local tool.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetSnapshotSource installs the snapshot source after construction, for
// callers that must build the Hub before the state it snapshots exists.
func (h *Hub) SetSnapshotSource(snapshot SnapshotSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = snapshot
}

// Emit implements agentcore.Emitter. Delivery is best-effort per
// subscriber: a slow or dead subscriber's channel fills and the event is
// dropped for that subscriber only, it never blocks other subscribers or
// the caller.
func (h *Hub) Emit(event agentcore.Event) {
	env := Envelope{Type: event.Type, Payload: event.Payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		select {
		case sub.send <- env:
		default:
			log.Printf("[EventHub] dropping event %q for slow subscriber %s", event.Type, sub.id)
		}
	}
}

// ServeWS upgrades r to a WebSocket connection and registers it as a
// subscriber. Blocks (in its own goroutines) for the connection's
// lifetime; call from an http.HandlerFunc.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[EventHub] websocket upgrade failed: %v", err)
		return
	}

	sub := h.register()
	h.sendSnapshot(sub)

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

// Subscribe registers an in-process subscriber (used when the Hub is
// embedded in a host process rather than reached over WebSocket) and
// returns a channel of envelopes plus an unsubscribe function. The
// snapshot is sent as the first value on the channel.
func (h *Hub) Subscribe() (<-chan Envelope, func()) {
	sub := h.register()
	h.sendSnapshot(sub)
	return sub.send, func() { h.unregister(sub.id) }
}

func (h *Hub) register() *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &subscriber{id: idFor(h.nextID), send: make(chan Envelope, sendBufferSize)}
	h.subscribers[sub.id] = sub
	return sub
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.send)
		delete(h.subscribers, id)
	}
}

func (h *Hub) sendSnapshot(sub *subscriber) {
	h.mu.RLock()
	src := h.snapshot
	h.mu.RUnlock()

	var payload snapshotPayload
	if src != nil {
		payload = snapshotPayload{Tasks: src.ListTasks(), Tools: src.ListTools()}
	}
	select {
	case sub.send <- Envelope{Type: "snapshot", Payload: payload}:
	default:
		log.Printf("[EventHub] subscriber %s buffer full on initial snapshot", sub.id)
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		h.unregister(sub.id)
	}()

	for {
		select {
		case env, ok := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(env); err != nil {
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

// readPump drains and discards client frames; the protocol is
// server-to-client only. Its job is to detect disconnects via read errors
// and keep the pong deadline extended.
func (h *Hub) readPump(conn *websocket.Conn, sub *subscriber) {
	defer func() {
		h.unregister(sub.id)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func idFor(n uint64) string {
	return "sub-" + strconv.FormatUint(n, 10)
}
