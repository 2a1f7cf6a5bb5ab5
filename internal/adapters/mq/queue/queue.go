// Package queue holds attempts waiting to be evaluated.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/speakeval/internal/domain/model"
	"github.com/okian/speakeval/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an attempt without blocking. It fails with ErrFull when
	// the queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, a model.Attempt) error

	// Dequeue returns a channel of attempts, closed once the queue is
	// closed and drained or ctx is done.
	Dequeue(ctx context.Context) <-chan model.Attempt

	Len() int
	Capacity() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	attempts chan model.Attempt
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.attempts = make(chan model.Attempt, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an attempt to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, a model.Attempt) error { //nolint:gocritic // hugeParam: value semantics for channel send
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		return fmt.Errorf("enqueue %s: %w", a.AttemptID, err)
	}

	select {
	case q.attempts <- a:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.attempts))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		return ErrFull
	}
}

// Dequeue returns a channel that receives attempts as they become available.
// The feeding goroutine exits and closes the channel when ctx is done or the
// queue is closed and drained. An attempt already taken from the buffer when
// ctx ends is counted as abandoned.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Attempt {
	out := make(chan model.Attempt)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case a, ok := <-q.attempts:
				if !ok {
					return
				}
				select {
				case out <- a:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.attempts))
				case <-ctx.Done():
					metrics.RecordQueueAbandoned()
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued attempts.
func (q *InMemoryQueue) Len() int {
	return len(q.attempts)
}

// Capacity returns the maximum number of queued attempts.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting attempts. Queued attempts remain readable through
// Dequeue until drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.attempts)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
