// Package analytics builds read models over persisted session data.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
)

// BucketFormat labels per-second trend buckets.
const BucketFormat = "15:04:05"

// Source is the subset of the repository analytics reads from.
type Source interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListPersonMetrics(ctx context.Context, sessionID string) ([]domain.PersonMetric, error)
	ListPersonSummaries(ctx context.Context, sessionID string) ([]domain.PersonSummary, error)
}

// TrendPoint aggregates the metric rows recorded within one second.
type TrendPoint struct {
	Time         string                 `json:"time"`
	AvgAttention float64                `json:"avg_attention"`
	StudentCount int                    `json:"student_count"`
	Emotions     map[domain.Emotion]int `json:"emotions"`
}

// HeatmapCell is one person's summary for a session.
type HeatmapCell struct {
	ID              string         `json:"id"`
	Attention       float64        `json:"attention"`
	DominantEmotion domain.Emotion `json:"dominant_emotion"`
	Presence        float64        `json:"presence"`
}

// Service answers analytics queries.
type Service struct {
	src Source
	loc *time.Location
}

// NewService creates a service that labels buckets in loc (UTC when nil).
func NewService(src Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{src: src, loc: loc}
}

// Trends returns per-second buckets in timestamp order. It returns
// domain.ErrSessionNotFound for unknown sessions.
func (s *Service) Trends(ctx context.Context, sessionID string) ([]TrendPoint, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.src.ListPersonMetrics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}

	var (
		out  []TrendPoint
		sums []float64
		idx  = make(map[string]int)
	)
	for _, r := range rows {
		key := r.Timestamp.In(s.loc).Format(BucketFormat)
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, TrendPoint{Time: key, Emotions: make(map[domain.Emotion]int)})
			sums = append(sums, 0)
		}
		sums[i] += r.Attention
		out[i].StudentCount++
		out[i].Emotions[r.Emotion]++
	}
	for i := range out {
		out[i].AvgAttention = sums[i] / float64(out[i].StudentCount)
	}
	return out, nil
}

// Heatmap returns one cell per person summary of a finished session.
func (s *Service) Heatmap(ctx context.Context, sessionID string) ([]HeatmapCell, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.src.ListPersonSummaries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	out := make([]HeatmapCell, 0, len(rows))
	for _, r := range rows {
		out = append(out, HeatmapCell{
			ID:              r.PersonID,
			Attention:       r.AvgAttention,
			DominantEmotion: r.DominantEmotion,
			Presence:        r.PresenceSeconds,
		})
	}
	return out, nil
}

func (s *Service) ensureSession(ctx context.Context, id string) error {
	sess, err := s.src.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return domain.ErrSessionNotFound
	}
	return nil
}
