// Package queue buffers ingested race rows between the API and the workers.
//
// The queue is a bounded channel. Enqueue never blocks: a full queue is
// reported to the caller, which turns it into backpressure.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/pkg/metrics"
)

const defaultQueueCapacity = 100000

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds one row. It returns ErrFull or ErrClosed without blocking.
	Enqueue(ctx context.Context, row model.RaceRow) error

	// EnqueueBatch adds all rows or none of them.
	EnqueueBatch(ctx context.Context, rows []model.RaceRow) error

	// Dequeue returns a channel that yields rows until the queue is closed
	// and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan model.RaceRow

	// Len returns the number of buffered rows.
	Len(ctx context.Context) int

	// Close stops accepting rows. Buffered rows can still be dequeued.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	rows     chan model.RaceRow
	capacity int

	// mu serialises producers so a batch is admitted as a whole.
	mu     sync.Mutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.rows = make(chan model.RaceRow, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueue(0, q.capacity)
	return q
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, row model.RaceRow) error {
	return q.EnqueueBatch(ctx, []model.RaceRow{row})
}

// EnqueueBatch implements Queue.EnqueueBatch.
func (q *InMemoryQueue) EnqueueBatch(ctx context.Context, rows []model.RaceRow) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	// Consumers only ever shrink len, so this check cannot be invalidated
	// before the sends below.
	if len(q.rows)+len(rows) > q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return fmt.Errorf("%w: %d buffered, %d requested, capacity %d", ErrFull, len(q.rows), len(rows), q.capacity)
	}
	for _, r := range rows {
		q.rows <- r
		metrics.RecordQueueEnqueue()
	}
	metrics.UpdateQueue(len(q.rows), q.capacity)
	return nil
}

// Dequeue implements Queue.Dequeue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.RaceRow {
	out := make(chan model.RaceRow)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case row, ok := <-q.rows:
				if !ok {
					return
				}
				select {
				case out <- row:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueue(len(q.rows), q.capacity)
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len(_ context.Context) int {
	n := len(q.rows)
	metrics.UpdateQueue(n, q.capacity)
	return n
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close implements Queue.Close.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.rows)
	q.closed = true
	return nil
}

// IsClosed implements Queue.IsClosed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
