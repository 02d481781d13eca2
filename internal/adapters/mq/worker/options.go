package worker

import (
	"github.com/okian/umastats/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithBatchSize caps how many buffered rows are written to the store at once.
func WithBatchSize(n int) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithFailureHandler registers a callback for rows the store refused.
func WithFailureHandler(h FailureHandler) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = h
	}
}
