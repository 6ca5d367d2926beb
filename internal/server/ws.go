package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/reptrack/internal/session"
	"github.com/gorilla/websocket"
)

const (
	liveInterval = 66 * time.Millisecond // ~15 FPS
	writeWait    = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Snapshotter provides the latest session snapshot.
type Snapshotter interface {
	Snapshot() (session.Snapshot, bool)
}

type liveMessage struct {
	Active   bool              `json:"active"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
}

// LiveHandler pushes session snapshots to WebSocket clients whenever they change.
type LiveHandler struct {
	snapshots Snapshotter
	log       *slog.Logger
	interval  time.Duration

	// clients maps each connection to whether it still needs its first message.
	clients map[*websocket.Conn]bool
	mu      sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewLiveHandler creates a LiveHandler and starts its broadcast loop.
func NewLiveHandler(snapshots Snapshotter, log *slog.Logger, interval time.Duration) *LiveHandler {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = liveInterval
	}
	h := &LiveHandler{
		snapshots: snapshots,
		log:       log,
		interval:  interval,
		clients:   make(map[*websocket.Conn]bool),
		done:      make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Close stops the broadcast loop and disconnects every client.
func (h *LiveHandler) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for conn := range h.clients {
			conn.Close()
		}
	})
}

// broadcast sends the current snapshot to clients when it changed since the
// last send, and to newly connected clients straight away.
func (h *LiveHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		h.mu.Lock()
		if len(h.clients) == 0 {
			h.mu.Unlock()
			continue
		}

		msg, err := h.message()
		if err != nil {
			h.mu.Unlock()
			h.log.Error("failed to encode snapshot", "error", err)
			continue
		}
		changed := !bytes.Equal(msg, last)

		for conn, fresh := range h.clients {
			if !changed && !fresh {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				delete(h.clients, conn)
				continue
			}
			h.clients[conn] = false
		}
		h.mu.Unlock()

		last = msg
	}
}

func (h *LiveHandler) message() ([]byte, error) {
	var m liveMessage
	if snap, ok := h.snapshots.Snapshot(); ok {
		m.Active = true
		m.Snapshot = &snap
	}
	return json.Marshal(m)
}
