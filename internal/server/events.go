package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/handsoff/internal/alert"
)

// writeWait bounds a single websocket write.
const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is the JSON message pushed to dashboard clients.
type Event struct {
	Type      string       `json:"type"`
	Alert     *alert.Alert `json:"alert,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// EventHub pushes every dispatched alert to connected WebSocket clients. It
// implements alert.Notifier so it can sit in the notification fan-out.
type EventHub struct {
	logger  *zap.Logger
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

var _ alert.Notifier = (*EventHub)(nil)

// NewEventHub creates an EventHub.
func NewEventHub(logger *zap.Logger) *EventHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHub{
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests on /api/events.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("event client connected", zap.String("remote", r.RemoteAddr))

	defer h.remove(conn)

	// Reads only detect the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Notify broadcasts an alert event to all connected clients. Clients that
// cannot be written to are dropped.
func (h *EventHub) Notify(ctx context.Context, a alert.Alert) error {
	msg, err := json.Marshal(Event{
		Type:      "alert",
		Alert:     &a,
		Timestamp: a.Timestamp.UnixMilli(),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for conn := range h.clients {
		conn.SetWriteDeadline(deadline)
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("dropping event client", zap.Error(err))
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}
