package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/classpulse/internal/analytics"
	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/engagement"
)

// DefaultSessionListLimit is the page size of the session list.
const DefaultSessionListLimit = 50

// ListSessions returns the newest sessions first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(r, "limit", DefaultSessionListLimit)
	if !ok {
		Error(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	sessions, err := h.reader.ListSessions(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list sessions", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	JSON(w, http.StatusOK, sessions)
}

// GetSession returns one persisted session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.reader.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get session", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	if sess == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, sess)
}

// GetLeaderboard returns the top standings of the running session.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, _ *http.Request) {
	board := h.board.Leaderboard(engagement.DefaultLeaderboardSize)
	if board == nil {
		board = []engagement.Standing{}
	}
	JSON(w, http.StatusOK, board)
}

// CurrentRecommendations returns the advice for the latest frame.
func (h *Handler) CurrentRecommendations(w http.ResponseWriter, _ *http.Request) {
	recs := h.advice.Current()
	if recs == nil {
		recs = []engagement.Recommendation{}
	}
	JSON(w, http.StatusOK, recs)
}

// Trends returns per-second attention buckets for a session.
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	points, err := h.analytics.Trends(r.Context(), id)
	if err != nil {
		h.analyticsError(w, id, err)
		return
	}
	if points == nil {
		points = []analytics.TrendPoint{}
	}
	JSON(w, http.StatusOK, points)
}

// Heatmap returns per-person summaries for a session.
func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cells, err := h.analytics.Heatmap(r.Context(), id)
	if err != nil {
		h.analyticsError(w, id, err)
		return
	}
	JSON(w, http.StatusOK, cells)
}

func (h *Handler) analyticsError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	slog.Error("Analytics query failed", "session_id", id, "error", err)
	Error(w, http.StatusInternalServerError, "analytics query failed")
}
