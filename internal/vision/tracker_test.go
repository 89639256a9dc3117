package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/classpulse/internal/domain"
)

func det(x, y int) domain.Detection {
	return domain.Detection{BBox: domain.BBox{X: x, Y: y, W: 100, H: 100}, Emotion: domain.EmotionNeutral, Confidence: 0.75}
}

func TestIoUTracker_ConfirmsAfterNInit(t *testing.T) {
	tr := NewIoUTracker(IoUTrackerConfig{NInit: 3, MaxAge: 5})

	for i := 1; i <= 2; i++ {
		tracks := tr.Update([]domain.Detection{det(10+i, 10)})
		require.Len(t, tracks, 1)
		assert.False(t, tracks[0].Confirmed, "frame %d should still be tentative", i)
		assert.Equal(t, "1", tracks[0].ID)
	}

	tracks := tr.Update([]domain.Detection{det(13, 10)})
	require.Len(t, tracks, 1)
	assert.True(t, tracks[0].Confirmed)
	assert.Equal(t, 0, tracks[0].TimeSinceUpdate)
}

func TestIoUTracker_TentativeDroppedOnMiss(t *testing.T) {
	tr := NewIoUTracker(IoUTrackerConfig{NInit: 3, MaxAge: 5})
	tr.Update([]domain.Detection{det(10, 10)})

	assert.Empty(t, tr.Update(nil))

	tracks := tr.Update([]domain.Detection{det(10, 10)})
	require.Len(t, tracks, 1)
	assert.Equal(t, "2", tracks[0].ID, "a new identity is allocated after the tentative track was dropped")
}

func TestIoUTracker_DropsAfterMaxAge(t *testing.T) {
	tr := NewIoUTracker(IoUTrackerConfig{NInit: 1, MaxAge: 2})
	tracks := tr.Update([]domain.Detection{det(10, 10)})
	require.Len(t, tracks, 1)
	require.True(t, tracks[0].Confirmed)

	tracks = tr.Update(nil)
	require.Len(t, tracks, 1)
	assert.Equal(t, 1, tracks[0].TimeSinceUpdate)

	tracks = tr.Update(nil)
	require.Len(t, tracks, 1)
	assert.Equal(t, 2, tracks[0].TimeSinceUpdate)

	assert.Empty(t, tr.Update(nil))
}

func TestIoUTracker_SeparatesDistantFaces(t *testing.T) {
	tr := NewIoUTracker(IoUTrackerConfig{NInit: 1, MaxAge: 2})
	tr.Update([]domain.Detection{det(0, 0), det(400, 0)})

	tracks := tr.Update([]domain.Detection{det(402, 0), det(2, 0)})
	require.Len(t, tracks, 2)
	assert.Equal(t, "1", tracks[0].ID)
	assert.InDelta(t, 2.0, tracks[0].Box.Left, 1e-9)
	assert.Equal(t, "2", tracks[1].ID)
	assert.InDelta(t, 402.0, tracks[1].Box.Left, 1e-9)
}

func TestIoUTracker_Reset(t *testing.T) {
	tr := NewIoUTracker(IoUTrackerConfig{NInit: 1})
	tr.Update([]domain.Detection{det(0, 0)})
	tr.Reset()

	tracks := tr.Update([]domain.Detection{det(0, 0)})
	require.Len(t, tracks, 1)
	assert.Equal(t, "2", tracks[0].ID)
}

func TestNewIoUTracker_Defaults(t *testing.T) {
	tr := NewIoUTracker(IoUTrackerConfig{})
	assert.Equal(t, DefaultIoUTrackerConfig(), tr.cfg)
}
