// Package queue buffers submitted reports between the HTTP layer and the
// workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10_000
)

// Report is the payload type flowing through the queue.
type Report = model.Report

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a report to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, r Report) bool

	// Dequeue returns a channel that receives reports as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Report

	// Len returns the current number of queued reports.
	Len(ctx context.Context) int

	// Close stops accepting reports.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	reports  chan Report
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.reports = make(chan Report, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a report to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Report) bool { //nolint:gocritic // hugeParam: Report is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	select {
	case q.reports <- r:
		metrics.RecordReportEnqueued()
		metrics.UpdateQueueSize(len(q.reports))
		return true
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives reports until the queue is closed
// or ctx is done.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Report {
	out := make(chan Report)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-q.reports:
				if !ok {
					return
				}
				metrics.UpdateQueueSize(len(q.reports))
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued reports.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.reports)
}

// Close stops accepting reports; buffered ones can still be drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.reports)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
