package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/classpulse/internal/domain"
)

type fakeSink struct {
	mu      sync.Mutex
	calls   []Batch
	fail    error
	blockCh chan struct{}
}

func (f *fakeSink) AppendMetrics(_ context.Context, sessionID string, rows []domain.PersonMetric, peopleCount int) error {
	if f.blockCh != nil {
		<-f.blockCh
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, Batch{SessionID: sessionID, Rows: rows, PeopleCount: peopleCount})
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func batchAt(at time.Time) Batch {
	return Batch{
		SessionID:   "s1",
		Rows:        []domain.PersonMetric{{SessionID: "s1", PersonID: "1", Timestamp: at, Emotion: domain.EmotionHappy, Confidence: 0.92, Attention: 92}},
		PeopleCount: 1,
		At:          at,
	}
}

func TestWriter_ThrottlesWithinInterval(t *testing.T) {
	sink := &fakeSink{}
	w := NewWriter(sink, 2*time.Second)

	assert.Equal(t, OutcomeWritten, w.Submit(context.Background(), batchAt(base)))
	assert.Equal(t, OutcomeThrottled, w.Submit(context.Background(), batchAt(base.Add(500*time.Millisecond))))
	assert.Equal(t, 1, sink.count())
}

func TestWriter_WritesAfterInterval(t *testing.T) {
	sink := &fakeSink{}
	w := NewWriter(sink, 2*time.Second)

	assert.Equal(t, OutcomeWritten, w.Submit(context.Background(), batchAt(base)))
	assert.Equal(t, OutcomeWritten, w.Submit(context.Background(), batchAt(base.Add(2500*time.Millisecond))))
	assert.Equal(t, 2, sink.count())
	assert.Equal(t, Stats{Written: 2}, w.Stats())
}

func TestWriter_IntervalBoundaryIsInclusive(t *testing.T) {
	sink := &fakeSink{}
	w := NewWriter(sink, 2*time.Second)

	w.Submit(context.Background(), batchAt(base))
	assert.Equal(t, OutcomeWritten, w.Submit(context.Background(), batchAt(base.Add(2*time.Second))))
}

func TestWriter_FailureDoesNotAdvanceWindow(t *testing.T) {
	sink := &fakeSink{fail: errors.New("disk full")}
	w := NewWriter(sink, 2*time.Second)

	assert.Equal(t, OutcomeFailed, w.Submit(context.Background(), batchAt(base)))

	sink.mu.Lock()
	sink.fail = nil
	sink.mu.Unlock()

	assert.Equal(t, OutcomeWritten, w.Submit(context.Background(), batchAt(base.Add(100*time.Millisecond))))
	assert.Equal(t, Stats{Written: 1, Failed: 1}, w.Stats())
}

func TestWriter_EmptyBatchNotWritten(t *testing.T) {
	sink := &fakeSink{}
	w := NewWriter(sink, 2*time.Second)

	assert.Equal(t, OutcomeEmpty, w.Submit(context.Background(), Batch{SessionID: "s1", At: base}))
	assert.Zero(t, sink.count())

	// an empty batch does not consume the window
	assert.Equal(t, OutcomeWritten, w.Submit(context.Background(), batchAt(base.Add(time.Millisecond))))
}

func TestWriter_UsesClockWhenBatchHasNoTimestamp(t *testing.T) {
	sink := &fakeSink{}
	now := base
	w := NewWriter(sink, 2*time.Second, WithClock(func() time.Time { return now }))

	b := batchAt(time.Time{})
	assert.Equal(t, OutcomeWritten, w.Submit(context.Background(), b))
	now = now.Add(time.Second)
	assert.Equal(t, OutcomeThrottled, w.Submit(context.Background(), b))
	now = now.Add(time.Second)
	assert.Equal(t, OutcomeWritten, w.Submit(context.Background(), b))
}

func TestAsync_DeliversToWriter(t *testing.T) {
	sink := &fakeSink{}
	a := NewAsync(NewWriter(sink, 2*time.Second), nil)
	t.Cleanup(func() { _ = a.Close() })

	a.Offer(batchAt(base))

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAsync_NewerBatchReplacesPending(t *testing.T) {
	sink := &fakeSink{blockCh: make(chan struct{})}
	a := NewAsync(NewWriter(sink, time.Millisecond), nil)

	// first batch occupies the worker inside the sink
	a.Offer(batchAt(base))
	require.Eventually(t, func() bool { return len(a.pending) == 0 }, time.Second, time.Millisecond)

	a.Offer(batchAt(base.Add(time.Second)))
	a.Offer(batchAt(base.Add(2 * time.Second)))
	assert.Equal(t, int64(1), a.Stats().Replaced)

	close(sink.blockCh)
	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	last := sink.calls[1].Rows[0].Timestamp
	sink.mu.Unlock()
	assert.Equal(t, base.Add(2*time.Second), last)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	a.Offer(batchAt(base.Add(time.Hour)))
}
