// Package session owns the classroom session lifecycle and the per-frame
// pipeline that feeds it.
//
// A Manager holds the single active session, the histories of the people seen
// in it and the tracker state. The frame loop is the only writer of histories
// and tracker; request handlers read through Status and Recent.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/expression"
	"github.com/ashureev/classpulse/internal/history"
	"github.com/ashureev/classpulse/internal/recorder"
	"github.com/ashureev/classpulse/internal/store"
	"github.com/ashureev/classpulse/internal/tracking"
	"github.com/ashureev/classpulse/internal/vision"
)

// Default identifiers used when a start request leaves them empty.
const (
	DefaultTeacherID = "teacher_1"
	DefaultClassID   = "class_1"
)

// persistTimeout bounds the summary write on stop.
const persistTimeout = 10 * time.Second

// Store is the persistence the manager needs.
type Store interface {
	StartSession(ctx context.Context, s *domain.Session) (int64, error)
	FinishSession(ctx context.Context, f store.Finish) error
	CloseActiveSessions(ctx context.Context, end time.Time) (int64, error)
}

// MetricsRecorder accepts per-frame batches without blocking.
type MetricsRecorder interface {
	Offer(b recorder.Batch)
}

// Listener is notified after lifecycle transitions.
type Listener interface {
	SessionStarted(id string)
	SessionStopped(id string)
}

// Deps wires a Manager.
type Deps struct {
	Store      Store
	Recorder   MetricsRecorder
	Detector   vision.Detector
	Classifier *expression.Classifier
	Tracker    vision.Tracker
	Associator tracking.Associator

	// RecentSamples bounds the raw samples kept per identity.
	RecentSamples int

	Logger *slog.Logger
	Clock  func() time.Time
	NewID  func() string
}

// Manager is the session lifecycle state machine.
type Manager struct {
	store      Store
	recorder   MetricsRecorder
	detector   vision.Detector
	classifier *expression.Classifier
	tracker    vision.Tracker
	associator tracking.Associator
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	recentSamples int

	// lifecycle serialises Start and Stop.
	lifecycle sync.Mutex

	// mu guards the fields below.
	mu        sync.RWMutex
	active    *domain.Session
	history   *history.Store
	startedAt time.Time
	listeners []Listener
	// lastAt is the time of the latest processed frame; sample times never go back.
	lastAt time.Time
}

// NewManager creates a manager with no active session.
func NewManager(d Deps) *Manager {
	m := &Manager{
		store:         d.Store,
		recorder:      d.Recorder,
		detector:      d.Detector,
		classifier:    d.Classifier,
		tracker:       d.Tracker,
		associator:    d.Associator,
		logger:        d.Logger,
		now:           d.Clock,
		newID:         d.NewID,
		recentSamples: d.RecentSamples,
	}
	if m.detector == nil {
		m.detector = vision.NopDetector{}
	}
	if m.classifier == nil {
		m.classifier = expression.NewClassifier(expression.DefaultProfile())
	}
	if m.tracker == nil {
		m.tracker = vision.NewIoUTracker(vision.DefaultIoUTrackerConfig())
	}
	if m.associator.MaxDistance <= 0 {
		m.associator = tracking.NewAssociator()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	m.history = history.NewStore(m.recentSamples)
	return m
}

// AddListener registers l for lifecycle notifications.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// StartResult is the outcome of Start.
type StartResult struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	// Closed is how many previously active sessions were soft-closed.
	Closed int64 `json:"closed,omitempty"`
}

// Start statuses.
const (
	StatusStarted = "started"
	StatusError   = "error"
)

// Start opens a new session. Any active session is soft-closed in the same
// transaction. If persistence fails the in-memory state is left untouched.
func (m *Manager) Start(ctx context.Context, teacherID, classID string) StartResult {
	if teacherID == "" {
		teacherID = DefaultTeacherID
	}
	if classID == "" {
		classID = DefaultClassID
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	now := m.now()
	sess := &domain.Session{
		ID:        m.newID(),
		TeacherID: teacherID,
		ClassID:   classID,
		StartTime: now,
		Status:    domain.SessionActive,
	}

	closed, err := m.store.StartSession(ctx, sess)
	if err != nil {
		m.logger.Error("Failed to start session", "teacher_id", teacherID, "class_id", classID, "error", err)
		return StartResult{Status: StatusError, Message: err.Error()}
	}

	m.mu.Lock()
	prev := m.active
	m.history.Reset()
	m.tracker.Reset()
	m.active = sess
	m.startedAt = now
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if prev != nil {
		m.logger.Info("Active session replaced", "previous_session_id", prev.ID, "session_id", sess.ID)
	}
	m.logger.Info("Session started",
		"session_id", sess.ID,
		"teacher_id", teacherID,
		"class_id", classID,
		"closed", closed,
	)
	for _, l := range listeners {
		l.SessionStarted(sess.ID)
	}

	return StartResult{Status: StatusStarted, SessionID: sess.ID, Closed: closed}
}

// StopResult is the outcome of Stop.
type StopResult struct {
	Status       string                 `json:"status"`
	SessionID    string                 `json:"session_id,omitempty"`
	PeopleCount  int                    `json:"people_count,omitempty"`
	AvgAttention float64                `json:"avg_attention,omitempty"`
	Summaries    []domain.PersonSummary `json:"summaries,omitempty"`
	// Fault records a persistence failure. The session is stopped in memory regardless.
	Fault string `json:"fault,omitempty"`
}

// Stop statuses.
const (
	StatusStopped         = "stopped"
	StatusNoActiveSession = "no_active_session"
)

// Stop finalizes the active session and writes one summary per identity.
func (m *Manager) Stop(ctx context.Context) StopResult {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	// Detach under the write lock: a frame in flight either finished its
	// appends already or will see no active session.
	m.mu.Lock()
	sess := m.active
	if sess == nil {
		m.mu.Unlock()
		return StopResult{Status: StatusNoActiveSession}
	}
	hist := m.history
	m.history = history.NewStore(m.recentSamples)
	m.active = nil
	m.startedAt = time.Time{}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	end := m.now()
	finals := hist.Finalize()
	summaries := make([]domain.PersonSummary, 0, len(finals))
	var sum float64
	var samples int
	for _, f := range finals {
		summaries = append(summaries, domain.PersonSummary{
			SessionID:       sess.ID,
			PersonID:        f.PersonID,
			PresenceSeconds: f.PresenceSeconds,
			AvgAttention:    f.AvgAttention,
			DominantEmotion: f.DominantEmotion,
		})
		sum += f.AttentionSum
		samples += f.Samples
	}
	var avg float64
	if samples > 0 {
		avg = sum / float64(samples)
	}

	res := StopResult{
		Status:       StatusStopped,
		SessionID:    sess.ID,
		PeopleCount:  len(summaries),
		AvgAttention: avg,
		Summaries:    summaries,
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	err := m.store.FinishSession(pctx, store.Finish{
		SessionID:    sess.ID,
		EndTime:      end,
		PeopleCount:  len(summaries),
		AvgAttention: avg,
		Summaries:    summaries,
	})
	if err != nil {
		res.Fault = err.Error()
		m.logger.Error("Failed to persist session summary", "session_id", sess.ID, "error", err)
	} else {
		m.logger.Info("Session stopped",
			"session_id", sess.ID,
			"people", len(summaries),
			"avg_attention", avg,
		)
	}

	for _, l := range listeners {
		l.SessionStopped(sess.ID)
	}
	return res
}

// Status is a consistent view of the lifecycle state.
type Status struct {
	Active          bool    `json:"active"`
	SessionID       string  `json:"session_id,omitempty"`
	PeopleCount     int     `json:"people_count"`
	DurationSeconds float64 `json:"duration"`
}

// Status reports the active session, how many distinct people it has seen and
// its elapsed time.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return Status{}
	}
	return Status{
		Active:          true,
		SessionID:       m.active.ID,
		PeopleCount:     m.history.Len(),
		DurationSeconds: m.now().Sub(m.startedAt).Seconds(),
	}
}

// Recent returns up to n of a person's newest samples in the active session.
// It returns domain.ErrNoActiveSession when nothing is running and ok=false
// when the person has not been seen.
func (m *Manager) Recent(personID string, n int) ([]history.Sample, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return nil, false, domain.ErrNoActiveSession
	}
	samples, ok := m.history.Recent(personID, n)
	return samples, ok, nil
}
