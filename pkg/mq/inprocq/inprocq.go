package inprocq

import (
	"sync"

	"github.com/BullionBear/aggbook/pkg/mq"
)

var _ mq.MessageQueue[int] = (*InprocQueue[int])(nil)

// InprocQueue is an in-memory unbounded implementation of the MessageQueue
// interface. Producers never block; the consumer blocks on an empty queue.
type InprocQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
}

// NewInprocQueue creates a new instance of InprocQueue.
func NewInprocQueue[T any]() *InprocQueue[T] {
	q := &InprocQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send adds a message to the queue. It returns mq.ErrClosed after Close so
// producers can notice that the consumer is gone without ever blocking.
func (q *InprocQueue[T]) Send(msg T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return mq.ErrClosed
	}
	q.queue = append(q.queue, msg)
	q.cond.Signal()
	return nil
}

// Recv blocks until a message is received from the queue. After Close it
// keeps returning the remaining messages until the queue is drained, then
// returns mq.ErrClosed.
func (q *InprocQueue[T]) Recv() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.queue) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.queue) == 0 {
		var zero T
		return zero, mq.ErrClosed
	}

	msg := q.queue[0]
	q.queue = q.queue[1:]
	return msg, nil
}

// Size returns the number of messages in the queue.
func (q *InprocQueue[T]) Size() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return uint64(len(q.queue))
}

// Close marks the queue closed and wakes the consumer so it can drain.
func (q *InprocQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
