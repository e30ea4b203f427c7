package server

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gigbase/stagehand/internal/logging"
)

// Hub tracks WebSocket clients and broadcasts JSON payloads to all of them.
// A client that fails a write is dropped; the diagnostics stream is best
// effort.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	logger  *logging.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger.WithComponent("ws"),
	}
}

// Add registers conn and spawns its read loop. The read loop discards
// inbound messages; its only job is noticing disconnects.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "clients", n)

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	conn.Close()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Send writes v as JSON to one client, serialized against Broadcast under
// the hub lock; gorilla connections do not allow concurrent writers. A
// failed write drops the client.
func (h *Hub) Send(conn *websocket.Conn, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := conn.WriteJSON(v); err != nil {
		h.logger.Debug("websocket write failed, dropping client", "error", err.Error())
		delete(h.clients, conn)
		conn.Close()
	}
}

// Broadcast sends v as JSON to every client. Writes are serialized under the
// hub lock; gorilla connections do not allow concurrent writers.
func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("websocket write failed, dropping client", "error", err.Error())
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
