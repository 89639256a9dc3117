// Package broadcast fans values out to many subscribers without ever blocking
// the publisher. A subscriber whose channel is full misses the value.
package broadcast

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with an unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")

	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("bus is closed")
)

// Stats is a snapshot of bus counters.
type Stats struct {
	TotalPublished uint64                     `json:"total_published"`
	TotalSent      uint64                     `json:"total_sent"`
	TotalDropped   uint64                     `json:"total_dropped"`
	Subscribers    map[string]SubscriberStats `json:"subscribers"`
}

// SubscriberStats tracks one subscriber.
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

type counters struct {
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus distributes values of type T.
type Bus[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]chan<- T
	stats       map[string]*counters
	closed      bool

	published atomic.Uint64
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{
		subscribers: make(map[string]chan<- T),
		stats:       make(map[string]*counters),
	}
}

// Subscribe registers ch under id.
func (b *Bus[T]) Subscribe(id string, ch chan<- T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, ok := b.subscribers[id]; ok {
		return ErrSubscriberExists
	}
	b.subscribers[id] = ch
	b.stats[id] = &counters{}
	return nil
}

// Unsubscribe removes id. The channel is not closed; it belongs to the caller.
func (b *Bus[T]) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, ok := b.subscribers[id]; !ok {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	delete(b.stats, id)
	return nil
}

// Publish offers v to every subscriber. It is a no-op on a closed bus.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.published.Add(1)

	for id, ch := range b.subscribers {
		select {
		case ch <- v:
			b.stats[id].sent.Add(1)
		default:
			b.stats[id].dropped.Add(1)
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Stats returns a snapshot of the counters.
func (b *Bus[T]) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Stats{
		TotalPublished: b.published.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(b.stats)),
	}
	for id, c := range b.stats {
		sub := SubscriberStats{Sent: c.sent.Load(), Dropped: c.dropped.Load()}
		s.TotalSent += sub.Sent
		s.TotalDropped += sub.Dropped
		s.Subscribers[id] = sub
	}
	return s
}

// Close detaches every subscriber. Further Subscribe calls fail.
func (b *Bus[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	b.closed = true
	b.subscribers = nil
	b.stats = nil
	return nil
}
