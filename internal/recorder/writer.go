// Package recorder persists per-frame metric rows at a bounded rate.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
)

// DefaultInterval is the minimum spacing between two successful writes.
const DefaultInterval = 2 * time.Second

// Sink stores metric rows and refreshes the session's running people count.
type Sink interface {
	AppendMetrics(ctx context.Context, sessionID string, rows []domain.PersonMetric, peopleCount int) error
}

// Batch is the set of candidate rows produced by one frame.
type Batch struct {
	SessionID   string
	Rows        []domain.PersonMetric
	PeopleCount int
	At          time.Time
}

// Outcome reports what Submit did with a batch.
type Outcome string

const (
	OutcomeWritten   Outcome = "written"
	OutcomeThrottled Outcome = "throttled"
	OutcomeEmpty     Outcome = "empty"
	OutcomeFailed    Outcome = "failed"
)

// Stats are cumulative writer counters.
type Stats struct {
	Written   int64 `json:"written"`
	Throttled int64 `json:"throttled"`
	Empty     int64 `json:"empty"`
	Failed    int64 `json:"failed"`
	Replaced  int64 `json:"replaced"`
}

// Writer writes a batch only when Interval has passed since the last
// successful write. Skipped batches are discarded, not queued.
type Writer struct {
	sink     Sink
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	lastWrite time.Time

	written   atomic.Int64
	throttled atomic.Int64
	empty     atomic.Int64
	failed    atomic.Int64
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides the clock used for batches without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithLogger sets the writer logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter creates a throttled writer. A non-positive interval uses DefaultInterval.
func NewWriter(sink Sink, interval time.Duration, opts ...Option) *Writer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	w := &Writer{
		sink:     sink,
		interval: interval,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Submit writes b if the throttle window has elapsed. Persistence errors are
// logged and counted; they never reach the caller.
func (w *Writer) Submit(ctx context.Context, b Batch) Outcome {
	if len(b.Rows) == 0 || b.SessionID == "" {
		w.empty.Add(1)
		return OutcomeEmpty
	}
	at := b.At
	if at.IsZero() {
		at = w.now()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lastWrite.IsZero() && at.Sub(w.lastWrite) < w.interval {
		w.throttled.Add(1)
		return OutcomeThrottled
	}

	if err := w.sink.AppendMetrics(ctx, b.SessionID, b.Rows, b.PeopleCount); err != nil {
		w.failed.Add(1)
		w.logger.Warn("[RECORDER] Metrics write failed",
			"session_id", b.SessionID,
			"rows", len(b.Rows),
			"error", err,
		)
		return OutcomeFailed
	}

	w.lastWrite = at
	w.written.Add(1)
	w.logger.Debug("[RECORDER] Metrics written",
		"session_id", b.SessionID,
		"rows", len(b.Rows),
		"people_count", b.PeopleCount,
	)
	return OutcomeWritten
}

// Stats returns the writer counters.
func (w *Writer) Stats() Stats {
	return Stats{
		Written:   w.written.Load(),
		Throttled: w.throttled.Load(),
		Empty:     w.empty.Load(),
		Failed:    w.failed.Load(),
	}
}
