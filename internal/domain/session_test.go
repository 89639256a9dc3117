package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_Duration(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("active session measures up to now", func(t *testing.T) {
		s := &Session{StartTime: start, Status: SessionActive}
		assert.Equal(t, 90*time.Second, s.Duration(start.Add(90*time.Second)))
		assert.True(t, s.IsActive())
	})

	t.Run("completed session uses end time", func(t *testing.T) {
		end := start.Add(time.Minute)
		s := &Session{StartTime: start, EndTime: &end, Status: SessionCompleted}
		assert.Equal(t, time.Minute, s.Duration(start.Add(time.Hour)))
		assert.False(t, s.IsActive())
	})

	t.Run("clock skew never goes negative", func(t *testing.T) {
		s := &Session{StartTime: start}
		assert.Zero(t, s.Duration(start.Add(-time.Second)))
	})
}

func TestRect_IoU(t *testing.T) {
	a := Rect{Left: 0, Top: 0, Right: 10, Bottom: 10}
	assert.InDelta(t, 1.0, a.IoU(a), 1e-9)
	assert.Zero(t, a.IoU(Rect{Left: 20, Top: 20, Right: 30, Bottom: 30}))

	half := Rect{Left: 5, Top: 0, Right: 15, Bottom: 10}
	assert.InDelta(t, 50.0/150.0, a.IoU(half), 1e-9)
}

func TestBBox_Center(t *testing.T) {
	x, y := BBox{X: 10, Y: 20, W: 30, H: 40}.Center()
	assert.Equal(t, 25.0, x)
	assert.Equal(t, 40.0, y)

	cx, cy := RectFromBBox(BBox{X: 10, Y: 20, W: 30, H: 40}).Center()
	assert.Equal(t, x, cx)
	assert.Equal(t, y, cy)
}

func TestMetricsSnapshot_MeanAttention(t *testing.T) {
	assert.Zero(t, MetricsSnapshot{}.MeanAttention())
	snap := MetricsSnapshot{People: []PersonSnapshot{{Attention: 80}, {Attention: 40}}}
	assert.Equal(t, 60.0, snap.MeanAttention())
}
