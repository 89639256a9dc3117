// Package stream serves the websocket endpoints: camera frame ingest and the
// live metrics feed.
package stream

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Connection kinds.
const (
	KindVideo   = "video"
	KindMetrics = "metrics"
)

type entry struct {
	kind string
	conn *websocket.Conn
}

// Hub tracks open websocket connections so they can be closed on shutdown.
type Hub struct {
	mu     sync.RWMutex
	active map[string]entry
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]entry)}
}

// Register adds a connection. It reports false once the hub is shut down, in
// which case the caller should close conn.
func (h *Hub) Register(id, kind string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if existing, ok := h.active[id]; ok && existing.conn != conn {
		_ = existing.conn.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.active[id] = entry{kind: kind, conn: conn}
	slog.Info("Stream connection registered", "conn_id", id, "kind", kind)
	return true
}

// Unregister removes a connection if it is still the one registered under id.
func (h *Hub) Unregister(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.active[id]; ok && current.conn == conn {
		delete(h.active, id)
		slog.Info("Stream connection unregistered", "conn_id", id, "kind", current.kind)
	}
}

// Count returns the number of open connections of kind, or of every kind when kind is empty.
func (h *Hub) Count(kind string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if kind == "" {
		return len(h.active)
	}
	n := 0
	for _, e := range h.active {
		if e.kind == kind {
			n++
		}
	}
	return n
}

// CloseAll terminates every connection and refuses new ones.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, e := range h.active {
		_ = e.conn.Close(websocket.StatusGoingAway, "server shutting down")
		slog.Info("Stream connection closed", "conn_id", id, "kind", e.kind)
	}
	h.active = make(map[string]entry)
}
