package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/classpulse/internal/domain"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestStore_FinalizeScenario(t *testing.T) {
	s := NewStore(0)
	s.Observe("1", domain.EmotionEngaged, 90, t0)
	s.Observe("1", domain.EmotionEngaged, 95, t0.Add(time.Second))
	s.Observe("1", domain.EmotionBored, 20, t0.Add(3*time.Second))

	got := s.Finalize()
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].PersonID)
	assert.InDelta(t, 68.33, got[0].AvgAttention, 0.01)
	assert.Equal(t, domain.EmotionEngaged, got[0].DominantEmotion)
	assert.InDelta(t, 3.0, got[0].PresenceSeconds, 1e-9)
	assert.Equal(t, 3, got[0].Samples)
	assert.InDelta(t, 205.0, got[0].AttentionSum, 1e-9)
}

func TestStore_DominantEmotion(t *testing.T) {
	tests := []struct {
		name   string
		labels []domain.Emotion
		want   domain.Emotion
	}{
		{"mode", []domain.Emotion{"a", "a", "b"}, "a"},
		{"tie keeps first", []domain.Emotion{"a", "b"}, "a"},
		{"tie keeps first reversed", []domain.Emotion{"b", "a"}, "b"},
		{"later majority", []domain.Emotion{"a", "b", "b"}, "b"},
		{"single", []domain.Emotion{"c"}, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(0)
			for i, e := range tt.labels {
				s.Observe("x", e, 50, t0.Add(time.Duration(i)*time.Second))
			}
			got := s.Finalize()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].DominantEmotion)
		})
	}
}

func TestStore_MeanAndPresenceHoldForLongSessions(t *testing.T) {
	s := NewStore(5)
	var sum float64
	n := 1000
	for i := 0; i < n; i++ {
		score := float64(i % 101)
		sum += score
		s.Observe("p", domain.EmotionNeutral, score, t0.Add(time.Duration(i)*100*time.Millisecond))
	}

	got := s.Finalize()
	require.Len(t, got, 1)
	assert.InDelta(t, sum/float64(n), got[0].AvgAttention, 1e-9)
	assert.InDelta(t, float64(n-1)*0.1, got[0].PresenceSeconds, 1e-6)

	recent, ok := s.Recent("p", 0)
	require.True(t, ok)
	assert.Len(t, recent, 5)
	assert.Equal(t, t0.Add(time.Duration(n-1)*100*time.Millisecond), recent[4].At)
}

func TestStore_SingleObservationHasZeroPresence(t *testing.T) {
	s := NewStore(0)
	s.Observe("solo", domain.EmotionHappy, 92, t0)

	got := s.Finalize()
	require.Len(t, got, 1)
	assert.Zero(t, got[0].PresenceSeconds)
	assert.InDelta(t, 92.0, got[0].AvgAttention, 1e-9)
}

func TestStore_FinalizeOrderedByFirstSighting(t *testing.T) {
	s := NewStore(0)
	for i, id := range []string{"9", "3", "12", "1"} {
		s.Observe(id, domain.EmotionNeutral, 75, t0.Add(time.Duration(i)*time.Second))
	}
	s.Observe("9", domain.EmotionNeutral, 75, t0.Add(10*time.Second))

	var ids []string
	for _, sum := range s.Finalize() {
		ids = append(ids, sum.PersonID)
	}
	assert.Equal(t, []string{"9", "3", "12", "1"}, ids)
	assert.Equal(t, 4, s.Len())
}

func TestStore_Reset(t *testing.T) {
	s := NewStore(0)
	s.Observe("1", domain.EmotionHappy, 92, t0)
	s.Reset()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.Finalize())
	_, ok := s.Recent("1", 10)
	assert.False(t, ok)
}

func TestRing(t *testing.T) {
	r := NewRing[int](3)
	assert.Empty(t, r.Last(0))

	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{1, 2}, r.Last(0))
	assert.Equal(t, 2, r.Len())

	r.Push(3)
	r.Push(4)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{2, 3, 4}, r.Last(0))
	assert.Equal(t, []int{3, 4}, r.Last(2))
	assert.Equal(t, []int{2, 3, 4}, r.Last(10))

	r.Reset()
	assert.Zero(t, r.Len())
	assert.Equal(t, 3, r.Capacity())
}
