// Package api provides HTTP handlers for the classroom attention API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/classpulse/internal/analytics"
	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/engagement"
	"github.com/ashureev/classpulse/internal/history"
	"github.com/ashureev/classpulse/internal/session"
)

// Sessions is the lifecycle surface the handlers drive.
type Sessions interface {
	Start(ctx context.Context, teacherID, classID string) session.StartResult
	Stop(ctx context.Context) session.StopResult
	Status() session.Status
	Recent(personID string, n int) ([]history.Sample, bool, error)
}

// SessionReader reads persisted sessions.
type SessionReader interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, limit int) ([]*domain.Session, error)
}

// Leaderboard ranks the people of the running session.
type Leaderboard interface {
	Leaderboard(n int) []engagement.Standing
}

// Recommendations exposes the advice derived from the latest frame.
type Recommendations interface {
	Current() []engagement.Recommendation
}

// Analytics answers per-session reporting queries.
type Analytics interface {
	Trends(ctx context.Context, sessionID string) ([]analytics.TrendPoint, error)
	Heatmap(ctx context.Context, sessionID string) ([]analytics.HeatmapCell, error)
}

// Handler serves the REST endpoints.
type Handler struct {
	sessions  Sessions
	reader    SessionReader
	board     Leaderboard
	advice    Recommendations
	analytics Analytics
}

// Deps wires a Handler.
type Deps struct {
	Sessions        Sessions
	Reader          SessionReader
	Leaderboard     Leaderboard
	Recommendations Recommendations
	Analytics       Analytics
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		sessions:  d.Sessions,
		reader:    d.Reader,
		board:     d.Leaderboard,
		advice:    d.Recommendations,
		analytics: d.Analytics,
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/session/start", h.StartSession)
		r.Post("/session/stop", h.StopSession)
		r.Get("/session/status", h.SessionStatus)

		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{id}", h.GetSession)

		r.Get("/students/{personID}/recent", h.RecentSamples)

		r.Get("/gamification/leaderboard", h.GetLeaderboard)
		r.Get("/recommendations/current", h.CurrentRecommendations)

		r.Get("/analytics/trends/{id}", h.Trends)
		r.Get("/analytics/heatmap/{id}", h.Heatmap)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
