// Package bus is a bounded lossy-latest broadcast of book summaries.
//
// Publishers never block. Each subscriber holds an independent cursor into
// a shared ring; a subscriber that lags past the capacity window skips to
// the oldest retained summary and is told how many it missed. New
// subscribers only see summaries published after they subscribed.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/BullionBear/aggbook/pkg/book"
)

// DefaultCapacity is the retention window of the ring.
const DefaultCapacity = 1000

// ErrClosed is returned by Recv once the bus is closed and the subscriber
// has drained everything it can still see.
var ErrClosed = errors.New("bus closed")

// LaggedError tells a slow subscriber how many summaries were dropped for
// it. The next Recv resumes at the oldest retained summary.
type LaggedError struct {
	Missed uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("lagged: missed %d summaries", e.Missed)
}

// Bus is the broadcast ring. One producer, many consumers.
type Bus struct {
	mu       sync.Mutex
	capacity uint64
	ring     []book.Summary
	seq      uint64 // next write position
	closed   bool
	notify   chan struct{}
}

func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: uint64(capacity),
		ring:     make([]book.Summary, capacity),
		notify:   make(chan struct{}),
	}
}

// Publish appends a summary to the ring, overwriting the oldest slot when
// the ring is full. It never blocks, whatever the subscribers are doing.
func (b *Bus) Publish(s book.Summary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.ring[b.seq%b.capacity] = s
	b.seq++
	close(b.notify)
	b.notify = make(chan struct{})
}

// Close wakes every pending Recv; subscribers drain what the ring still
// holds for them and then get ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

// Subscribe attaches a new cursor starting at the next summary to be
// published. Subscribers hold no bus-side resources, so an abandoned one
// needs no cleanup.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Subscriber{bus: b, next: b.seq}
}

// Subscriber is one consumer's position on the bus.
type Subscriber struct {
	bus  *Bus
	next uint64
}

// Recv returns the next summary, blocking until one is published, the bus
// closes, or ctx is done. When the subscriber has fallen out of the
// retention window it returns a LaggedError and repositions to the oldest
// retained summary.
func (s *Subscriber) Recv(ctx context.Context) (book.Summary, error) {
	b := s.bus
	for {
		b.mu.Lock()
		if s.next < b.seq {
			if b.seq-s.next > b.capacity {
				oldest := b.seq - b.capacity
				missed := oldest - s.next
				s.next = oldest
				b.mu.Unlock()
				return book.Summary{}, &LaggedError{Missed: missed}
			}
			summary := b.ring[s.next%b.capacity]
			s.next++
			b.mu.Unlock()
			return summary, nil
		}
		if b.closed {
			b.mu.Unlock()
			return book.Summary{}, ErrClosed
		}
		wait := b.notify
		b.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return book.Summary{}, ctx.Err()
		}
	}
}
