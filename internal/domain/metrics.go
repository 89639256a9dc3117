package domain

import "time"

// PersonSnapshot is one matched identity in a processed frame.
type PersonSnapshot struct {
	ID         string  `json:"id"`
	BBox       [4]int  `json:"bbox"`
	Emotion    Emotion `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Attention  float64 `json:"attention"`
}

// MetricsSnapshot is emitted once per processed frame. It is never mutated after emission.
type MetricsSnapshot struct {
	Timestamp     time.Time        `json:"timestamp"`
	TotalPeople   int              `json:"total_people"`
	People        []PersonSnapshot `json:"people"`
	SessionActive bool             `json:"session_active"`
}

// MeanAttention returns the average attention of the people in the snapshot.
func (m MetricsSnapshot) MeanAttention() float64 {
	if len(m.People) == 0 {
		return 0
	}
	var sum float64
	for _, p := range m.People {
		sum += p.Attention
	}
	return sum / float64(len(m.People))
}

// PersonMetric is a sampled per-frame row written by the throttled writer.
type PersonMetric struct {
	SessionID  string    `json:"session_id"`
	PersonID   string    `json:"person_id"`
	Timestamp  time.Time `json:"timestamp"`
	Emotion    Emotion   `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Attention  float64   `json:"attention"`
}

// PersonSummary is the per-identity row written when a session stops.
type PersonSummary struct {
	SessionID       string  `json:"session_id"`
	PersonID        string  `json:"person_id"`
	PresenceSeconds float64 `json:"presence_seconds"`
	AvgAttention    float64 `json:"avg_attention"`
	DominantEmotion Emotion `json:"dominant_emotion"`
}
