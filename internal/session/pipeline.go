package session

import (
	"context"
	"time"

	"github.com/ashureev/classpulse/internal/attention"
	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/recorder"
	"github.com/ashureev/classpulse/internal/vision"
)

// ProcessFrame runs one frame through detection, tracking, association and
// scoring, appends to the active session's histories and hands the sampled
// rows to the recorder. It never fails; perception problems yield fewer people.
func (m *Manager) ProcessFrame(ctx context.Context, frame vision.Frame) domain.MetricsSnapshot {
	// Detection may block on the landmark model, so it runs outside the lock.
	faces := m.detector.Detect(ctx, frame)
	dets := m.classifier.Classify(frame.Width, frame.Height, faces)

	m.mu.Lock()
	now := m.sampleTimeLocked(frame.Timestamp)
	tracks := m.tracker.Update(dets)
	matches := m.associator.Associate(tracks, dets)

	people := make([]domain.PersonSnapshot, 0, len(matches))
	var rows []domain.PersonMetric
	active := m.active
	for _, mt := range matches {
		score := attention.Score(mt.Detection.Emotion, mt.Detection.Confidence)
		people = append(people, domain.PersonSnapshot{
			ID:         mt.Track.ID,
			BBox:       mt.Track.Box.Ints(),
			Emotion:    mt.Detection.Emotion,
			Confidence: mt.Detection.Confidence,
			Attention:  score,
		})
		if active == nil {
			continue
		}
		m.history.Observe(mt.Track.ID, mt.Detection.Emotion, score, now)
		rows = append(rows, domain.PersonMetric{
			SessionID:  active.ID,
			PersonID:   mt.Track.ID,
			Timestamp:  now,
			Emotion:    mt.Detection.Emotion,
			Confidence: mt.Detection.Confidence,
			Attention:  score,
		})
	}
	m.mu.Unlock()

	if active != nil && m.recorder != nil {
		m.recorder.Offer(recorder.Batch{
			SessionID:   active.ID,
			Rows:        rows,
			PeopleCount: len(people),
			At:          now,
		})
	}

	return domain.MetricsSnapshot{
		Timestamp:     now,
		TotalPeople:   len(people),
		People:        people,
		SessionActive: active != nil,
	}
}

// sampleTimeLocked returns the time recorded for a frame stamped at. Frames
// from several producers can reach the loop out of order, so the result is
// forced strictly after the previous frame's.
func (m *Manager) sampleTimeLocked(at time.Time) time.Time {
	if at.IsZero() {
		at = m.now()
	}
	if !at.After(m.lastAt) {
		at = m.lastAt.Add(time.Nanosecond)
	}
	m.lastAt = at
	return at
}
