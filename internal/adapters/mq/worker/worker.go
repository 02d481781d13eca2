// Package worker drains the ingestion queue into the row store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/pkg/logger"
	"github.com/okian/umastats/pkg/metrics"
)

const (
	defaultBatchSize    = 256
	poolShutdownTimeout = 30 * time.Second
)

// Appender persists race rows.
type Appender interface {
	Append(ctx context.Context, rows ...model.RaceRow) error
}

// Queue defines how workers receive rows.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.RaceRow
}

// FailureHandler is told about rows that could not be appended.
type FailureHandler func(ctx context.Context, rows []model.RaceRow, err error)

// Worker moves rows from a queue into a store.
type Worker interface {
	// Run processes rows until the queue is drained, ctx is done or
	// Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for it to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	store     Appender
	name      string
	batchSize int
	onFailure FailureHandler

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, store Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		store:     store,
		name:      "worker",
		batchSize: defaultBatchSize,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	rows := w.queue.Dequeue(ctx)
	batch := make([]model.RaceRow, 0, w.batchSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case row, ok := <-rows:
			if !ok {
				return
			}
			batch = append(batch[:0], row)
			batch = w.fill(batch, rows)
			if err := w.process(ctx, batch); err != nil {
				w.logger.Error(ctx, "error appending rows", logger.Int("rows", len(batch)), logger.Error(err))
			}
		}
	}
}

// fill adds rows that are already waiting, without blocking, up to the batch size.
func (w *InMemoryWorker) fill(batch []model.RaceRow, rows <-chan model.RaceRow) []model.RaceRow {
	for len(batch) < w.batchSize {
		select {
		case row, ok := <-rows:
			if !ok {
				return batch
			}
			batch = append(batch, row)
		default:
			return batch
		}
	}
	return batch
}

func (w *InMemoryWorker) process(ctx context.Context, batch []model.RaceRow) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.store.Append(ctx, batch...); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "append_error")
		metrics.RecordErrorByType("append_error", "high")
		if w.onFailure != nil {
			w.onFailure(ctx, batch, err)
		}
		return fmt.Errorf("append %d rows: %w", len(batch), err)
	}
	for range batch {
		metrics.RecordRowIngested()
	}
	w.logger.Debug(ctx, "rows appended", logger.Int("rows", len(batch)))
	return nil
}

// Shutdown implements Worker.Shutdown.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers on one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses
// runtime.NumCPU().
func NewPool(workerCount int, q Queue, store Appender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, store, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets the workers drain what is buffered and
// waits for them. Workers still busy when ctx (or the pool's own timeout)
// expires are stopped without draining.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(context.Background())
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, drainCtx.Err())
	}
	return nil
}
