package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ashureev/classpulse/internal/broadcast"
	"github.com/ashureev/classpulse/internal/engagement"
)

// writeTimeout bounds a single message write to a client.
const writeTimeout = 5 * time.Second

// DefaultSubscriberBuffer is the per-connection update buffer.
const DefaultSubscriberBuffer = 8

// Options configures a Handler.
type Options struct {
	AllowedOrigins   []string
	IsDevelopment    bool
	SubscriberBuffer int
	Clock            func() time.Time
}

// Handler serves the websocket endpoints.
type Handler struct {
	hub   *Hub
	queue *FrameQueue
	bus   *broadcast.Bus[engagement.Update]

	allowedOrigins []string
	isDev          bool
	buffer         int
	now            func() time.Time

	seq atomic.Uint64
}

// NewHandler creates a websocket handler.
func NewHandler(hub *Hub, queue *FrameQueue, bus *broadcast.Bus[engagement.Update], opts Options) *Handler {
	h := &Handler{
		hub:            hub,
		queue:          queue,
		bus:            bus,
		allowedOrigins: opts.AllowedOrigins,
		isDev:          opts.IsDevelopment,
		buffer:         opts.SubscriberBuffer,
		now:            opts.Clock,
	}
	if h.buffer <= 0 {
		h.buffer = DefaultSubscriberBuffer
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// controlMessage is a text message from a video client.
type controlMessage struct {
	Type string `json:"type"`
}

// ServeVideo accepts encoded frames from a camera client and streams live
// updates back on the same connection.
func (h *Handler) ServeVideo(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := h.accept(w, r, KindVideo)
	if !ok {
		return
	}
	defer h.finish(id, ws)
	ws.SetReadLimit(MaxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, ok := h.subscribe(ws, id)
	if !ok {
		return
	}
	defer h.unsubscribe(id)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, ws, updates, id)
	}()

	h.readFrames(ctx, ws, id)
	cancel()
	wg.Wait()
}

// ServeMetrics streams live updates to a read-only dashboard client.
func (h *Handler) ServeMetrics(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := h.accept(w, r, KindMetrics)
	if !ok {
		return
	}
	defer h.finish(id, ws)

	// Client messages are discarded; the context ends when the peer goes away.
	ctx := ws.CloseRead(r.Context())

	updates, ok := h.subscribe(ws, id)
	if !ok {
		return
	}
	defer h.unsubscribe(id)

	h.writeLoop(ctx, ws, updates, id)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request, kind string) (*websocket.Conn, string, bool) {
	slog.Info("WebSocket connection request", "kind", kind, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return nil, "", false
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "kind", kind, "error", err)
		return nil, "", false
	}

	id := uuid.NewString()
	if !h.hub.Register(id, kind, ws) {
		_ = ws.Close(websocket.StatusGoingAway, "server shutting down")
		return nil, "", false
	}
	return ws, id, true
}

func (h *Handler) finish(id string, ws *websocket.Conn) {
	h.hub.Unregister(id, ws)
	if err := ws.Close(websocket.StatusNormalClosure, "stream ended"); err != nil {
		slog.Debug("Failed to close websocket", "conn_id", id, "error", err)
	}
}

func (h *Handler) subscribe(ws *websocket.Conn, id string) (<-chan engagement.Update, bool) {
	ch := make(chan engagement.Update, h.buffer)
	if err := h.bus.Subscribe(id, ch); err != nil {
		slog.Warn("Failed to subscribe to live updates", "conn_id", id, "error", err)
		_ = ws.Close(websocket.StatusTryAgainLater, "updates unavailable")
		return nil, false
	}
	return ch, true
}

func (h *Handler) unsubscribe(id string) {
	if err := h.bus.Unsubscribe(id); err != nil {
		slog.Debug("Failed to unsubscribe", "conn_id", id, "error", err)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *Handler) readFrames(ctx context.Context, ws *websocket.Conn, id string) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("Video client disconnected", "conn_id", id)
			} else {
				slog.Warn("WebSocket read error", "conn_id", id, "error", err)
			}
			return
		}

		if typ == websocket.MessageText {
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err == nil && msg.Type == "ping" {
				if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
					slog.Debug("Failed to send pong", "conn_id", id, "error", err)
				}
			}
			continue
		}

		frame, err := DecodeFrame(data, h.seq.Add(1), h.now())
		if err != nil {
			slog.Debug("Discarding undecodable frame", "conn_id", id, "bytes", len(data), "error", err)
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "error", "error": "invalid_frame"}); err != nil {
				slog.Debug("Failed to send invalid_frame error", "conn_id", id, "error", err)
			}
			continue
		}
		h.queue.Push(frame)
	}
}

func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, updates <-chan engagement.Update, id string) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			if err := h.writeJSON(ctx, ws, u); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "conn_id", id, "error", err)
				}
				return
			}
		}
	}
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(wctx, websocket.MessageText, data)
}
