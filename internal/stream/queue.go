package stream

import (
	"sync"
	"sync/atomic"

	"github.com/ashureev/classpulse/internal/vision"
)

// FrameQueue hands frames to the frame loop. When the loop falls behind the
// oldest pending frame is discarded, so the loop always sees the newest image.
type FrameQueue struct {
	ch chan vision.Frame
	mu sync.Mutex

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// QueueStats reports queue counters.
type QueueStats struct {
	Accepted uint64 `json:"accepted"`
	Dropped  uint64 `json:"dropped"`
	Pending  int    `json:"pending"`
}

// NewFrameQueue creates a queue holding at most size pending frames.
func NewFrameQueue(size int) *FrameQueue {
	if size <= 0 {
		size = 1
	}
	return &FrameQueue{ch: make(chan vision.Frame, size)}
}

// Push enqueues f, evicting the oldest pending frame when full. It never blocks.
func (q *FrameQueue) Push(f vision.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case q.ch <- f:
			q.accepted.Add(1)
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// Frames is the channel the frame loop consumes.
func (q *FrameQueue) Frames() <-chan vision.Frame {
	return q.ch
}

// Stats returns the queue counters.
func (q *FrameQueue) Stats() QueueStats {
	return QueueStats{
		Accepted: q.accepted.Load(),
		Dropped:  q.dropped.Load(),
		Pending:  len(q.ch),
	}
}
