package session

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/vision"
)

// slowFrame is the processing time above which a frame is logged.
const slowFrame = 100 * time.Millisecond

// Run is the frame loop: it processes frames until ctx is done or frames is
// closed and passes every snapshot to publish.
func (m *Manager) Run(ctx context.Context, frames <-chan vision.Frame, publish func(domain.MetricsSnapshot)) {
	m.logger.Info("Frame loop started")
	defer m.logger.Info("Frame loop stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			start := time.Now()
			snap := m.ProcessFrame(ctx, f)
			if d := time.Since(start); d > slowFrame {
				m.logger.Warn("Slow frame", "seq", f.Seq, "duration_ms", d.Milliseconds())
			}
			if publish != nil {
				publish(snap)
			}
		}
	}
}

// RecoverOrphans completes sessions a previous process left active. It does
// nothing once this manager has started a session of its own.
func (m *Manager) RecoverOrphans(ctx context.Context) (int64, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.RLock()
	running := m.active != nil
	m.mu.RUnlock()
	if running {
		return 0, nil
	}

	n, err := m.store.CloseActiveSessions(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("close orphaned sessions: %w", err)
	}
	if n > 0 {
		m.logger.Warn("Closed sessions left active by a previous run", "count", n)
	}
	return n, nil
}
