package domain

import "time"

// SessionStatus is the persisted lifecycle state of a session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Session is one monitored class period. Sessions are soft-closed, never deleted.
type Session struct {
	ID           string        `json:"id"`
	TeacherID    string        `json:"teacher_id"`
	ClassID      string        `json:"class_id"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	Status       SessionStatus `json:"status"`
	PeopleCount  int           `json:"people_count"`
	AvgAttention float64       `json:"avg_attention"`
}

// IsActive reports whether the session is still running.
func (s *Session) IsActive() bool {
	return s.Status == SessionActive
}

// Duration returns the elapsed time of the session, measured up to now while active.
func (s *Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}
