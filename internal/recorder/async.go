package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Async hands batches to a Writer on a background goroutine so the frame loop
// never waits on storage. It holds at most one pending batch: a newer batch
// replaces one the worker has not picked up yet.
type Async struct {
	writer   *Writer
	pending  chan Batch
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *slog.Logger
	replaced atomic.Int64
	closed   atomic.Bool
}

// NewAsync starts the background worker.
func NewAsync(w *Writer, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		writer:  w,
		pending: make(chan Batch, 1),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}

	a.wg.Add(1)
	go a.process()

	return a
}

// Offer queues b without blocking.
func (a *Async) Offer(b Batch) {
	if a.closed.Load() {
		return
	}
	select {
	case a.pending <- b:
		return
	default:
	}

	// Slot taken: replace the older batch.
	select {
	case <-a.pending:
		a.replaced.Add(1)
	default:
	}
	select {
	case a.pending <- b:
	default:
		a.logger.Debug("[RECORDER] Dropped batch, slot busy",
			"session_id", b.SessionID,
		)
	}
}

func (a *Async) process() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case b := <-a.pending:
			start := time.Now()
			a.writer.Submit(a.ctx, b)
			if d := time.Since(start); d > a.writer.interval {
				a.logger.Warn("[RECORDER] Slow metrics write",
					"session_id", b.SessionID,
					"duration_ms", d.Milliseconds(),
				)
			}
		}
	}
}

// Close stops the worker, discarding any pending batch.
func (a *Async) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.logger.Warn("[RECORDER] Worker shutdown timeout")
	}
	return nil
}

// Stats returns the writer counters plus replaced hand-offs.
func (a *Async) Stats() Stats {
	s := a.writer.Stats()
	s.Replaced = a.replaced.Load()
	return s
}
