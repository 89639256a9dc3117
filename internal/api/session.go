package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/history"
	"github.com/ashureev/classpulse/internal/session"
)

// DefaultRecentSamples is how many samples the recent endpoint returns without ?n.
const DefaultRecentSamples = 10

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 16

type startRequest struct {
	TeacherID string `json:"teacher_id"`
	ClassID   string `json:"class_id"`
}

// StartSession opens a new session. An empty body uses the default identifiers.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := h.sessions.Start(r.Context(), req.TeacherID, req.ClassID)
	if res.Status != session.StatusStarted {
		JSON(w, http.StatusInternalServerError, res)
		return
	}
	JSON(w, http.StatusOK, res)
}

// StopSession finalizes the active session.
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.sessions.Stop(r.Context()))
}

// SessionStatus reports the lifecycle state.
func (h *Handler) SessionStatus(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.sessions.Status())
}

type recentResponse struct {
	PersonID string           `json:"person_id"`
	Samples  []history.Sample `json:"samples"`
}

// RecentSamples returns a person's newest samples in the active session.
func (h *Handler) RecentSamples(w http.ResponseWriter, r *http.Request) {
	n, ok := intQuery(r, "n", DefaultRecentSamples)
	if !ok {
		Error(w, http.StatusBadRequest, "n must be a positive integer")
		return
	}

	personID := chi.URLParam(r, "personID")
	samples, found, err := h.sessions.Recent(personID, n)
	switch {
	case errors.Is(err, domain.ErrNoActiveSession):
		Error(w, http.StatusNotFound, "no active session")
		return
	case err != nil:
		slog.Error("Failed to read recent samples", "person_id", personID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to read samples")
		return
	case !found:
		Error(w, http.StatusNotFound, "person not found")
		return
	}
	JSON(w, http.StatusOK, recentResponse{PersonID: personID, Samples: samples})
}

// intQuery parses a positive integer query parameter, returning def when absent.
func intQuery(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
