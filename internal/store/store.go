// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
)

// Repository defines the interface for persisting sessions and their metrics.
type Repository interface {
	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// StartSession soft-closes every active session at s.StartTime and inserts s,
	// in one transaction. It returns how many sessions were closed.
	StartSession(ctx context.Context, s *domain.Session) (int64, error)

	// FinishSession marks a session completed and writes its per-person summaries.
	FinishSession(ctx context.Context, f Finish) error

	// AppendMetrics stores metric rows and refreshes the active session's people count.
	AppendMetrics(ctx context.Context, sessionID string, rows []domain.PersonMetric, peopleCount int) error

	// GetSession retrieves a session by ID. Returns nil, nil when it does not exist.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// ListSessions returns the most recent sessions first.
	ListSessions(ctx context.Context, limit int) ([]*domain.Session, error)

	// CloseActiveSessions marks every active session completed at end.
	CloseActiveSessions(ctx context.Context, end time.Time) (int64, error)

	// ListPersonMetrics returns a session's metric rows in timestamp order.
	ListPersonMetrics(ctx context.Context, sessionID string) ([]domain.PersonMetric, error)

	// ListPersonSummaries returns a session's summary rows in insertion order.
	ListPersonSummaries(ctx context.Context, sessionID string) ([]domain.PersonSummary, error)
}

// Finish carries the final state of a stopped session.
type Finish struct {
	SessionID    string
	EndTime      time.Time
	PeopleCount  int
	AvgAttention float64
	Summaries    []domain.PersonSummary
}
