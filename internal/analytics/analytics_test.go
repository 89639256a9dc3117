package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/classpulse/internal/domain"
)

type fakeSource struct {
	sessions  map[string]*domain.Session
	metrics   []domain.PersonMetric
	summaries []domain.PersonSummary
	err       error
}

func (f *fakeSource) GetSession(_ context.Context, id string) (*domain.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeSource) ListPersonMetrics(context.Context, string) ([]domain.PersonMetric, error) {
	return f.metrics, f.err
}

func (f *fakeSource) ListPersonSummaries(context.Context, string) ([]domain.PersonSummary, error) {
	return f.summaries, f.err
}

var t0 = time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

func TestTrends_BucketsPerSecond(t *testing.T) {
	src := &fakeSource{
		sessions: map[string]*domain.Session{"s": {ID: "s"}},
		metrics: []domain.PersonMetric{
			{PersonID: "1", Timestamp: t0, Emotion: domain.EmotionHappy, Attention: 90},
			{PersonID: "2", Timestamp: t0.Add(400 * time.Millisecond), Emotion: domain.EmotionBored, Attention: 30},
			{PersonID: "1", Timestamp: t0.Add(2 * time.Second), Emotion: domain.EmotionHappy, Attention: 92},
		},
	}

	got, err := NewService(src, nil).Trends(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "09:15:00", got[0].Time)
	assert.InDelta(t, 60.0, got[0].AvgAttention, 1e-9)
	assert.Equal(t, 2, got[0].StudentCount)
	assert.Equal(t, map[domain.Emotion]int{domain.EmotionHappy: 1, domain.EmotionBored: 1}, got[0].Emotions)

	assert.Equal(t, "09:15:02", got[1].Time)
	assert.Equal(t, 1, got[1].StudentCount)
}

func TestTrends_UnknownSession(t *testing.T) {
	_, err := NewService(&fakeSource{}, nil).Trends(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestTrends_SourceError(t *testing.T) {
	src := &fakeSource{sessions: map[string]*domain.Session{"s": {ID: "s"}}, err: errors.New("db down")}
	_, err := NewService(src, nil).Trends(context.Background(), "s")
	assert.ErrorContains(t, err, "list metrics")
}

func TestHeatmap(t *testing.T) {
	src := &fakeSource{
		sessions: map[string]*domain.Session{"s": {ID: "s"}},
		summaries: []domain.PersonSummary{
			{SessionID: "s", PersonID: "1", PresenceSeconds: 120, AvgAttention: 68.33, DominantEmotion: domain.EmotionEngaged},
		},
	}

	got, err := NewService(src, time.UTC).Heatmap(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, []HeatmapCell{{ID: "1", Attention: 68.33, DominantEmotion: domain.EmotionEngaged, Presence: 120}}, got)

	empty, err := NewService(&fakeSource{sessions: src.sessions}, nil).Heatmap(context.Background(), "s")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}
