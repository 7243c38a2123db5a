package worker

import (
	"context"
	"time"

	"github.com/okian/juryboard/pkg/logger"
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

// WithRetry sets how many times a failed store write is attempted and the
// base backoff between attempts. Backoff grows linearly.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(w *InMemoryWorker) {
		if attempts > 0 {
			w.retryAttempts = attempts
		}
		if backoff >= 0 {
			w.retryBackoff = backoff
		}
	}
}

// WithOnFailed sets a callback for submissions that exhausted their retries.
// Rejected submissions do not reach it.
func WithOnFailed(fn func(ctx context.Context, sub Submission)) Option {
	return func(w *InMemoryWorker) {
		w.onFailed = fn
	}
}
