// Package worker persists queued score submissions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/juryboard/internal/adapters/repository"
	"github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/pkg/logger"
	"github.com/okian/juryboard/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 50 * time.Millisecond
	poolShutdownTimeout  = 30 * time.Second
)

// Submission is what workers read off the queue.
type Submission = model.ScoreSubmission

// Writer persists a score sheet.
type Writer interface {
	UpsertScore(ctx context.Context, sub model.ScoreSubmission) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// Worker processes submissions.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Persisted int64 `json:"persisted"`
	Rejected  int64 `json:"rejected"`
	Failed    int64 `json:"failed"`
}

// counters are shared by the workers of one pool.
type counters struct {
	persisted atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	writer Writer
	name   string

	retryAttempts int
	retryBackoff  time.Duration
	counters      *counters
	onFailed      func(ctx context.Context, sub Submission)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         queue,
		writer:        writer,
		name:          "worker",
		retryAttempts: defaultRetryAttempts,
		retryBackoff:  defaultRetryBackoff,
		counters:      &counters{},
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logger.Get().Named("worker"),
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

	subs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case sub, ok := <-subs:
			if !ok {
				return
			}
			if err := w.process(ctx, sub); err != nil {
				w.logger.Error(ctx, "error processing submission",
					logger.String("submission_id", sub.SubmissionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process validates and writes one submission, retrying store failures that
// are not caused by the submission itself.
func (w *InMemoryWorker) process(ctx context.Context, sub Submission) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := sub.Validate(); err != nil {
		w.reject("invalid")
		return err
	}

	var err error
	for attempt := 1; attempt <= w.retryAttempts; attempt++ {
		err = w.writer.UpsertScore(ctx, sub)
		if err == nil {
			w.counters.persisted.Add(1)
			metrics.RecordScorePersisted()
			return nil
		}
		switch {
		case errors.Is(err, repository.ErrNotAssigned):
			w.reject("not_assigned")
			return err
		case errors.Is(err, repository.ErrNotFound):
			w.reject("not_found")
			return err
		}
		if attempt == w.retryAttempts {
			break
		}
		w.logger.Warn(ctx, "score write failed, retrying",
			logger.String("submission_id", sub.SubmissionID),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			attempt = w.retryAttempts
		case <-time.After(w.retryBackoff * time.Duration(attempt)):
		}
	}

	if w.onFailed != nil {
		w.onFailed(ctx, sub)
	}
	w.counters.failed.Add(1)
	metrics.RecordScoreWriteError("store")
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "store_error")
	metrics.RecordErrorByType("store_error", "high")
	return fmt.Errorf("persist submission %s: %w", sub.SubmissionID, err)
}

func (w *InMemoryWorker) reject(reason string) {
	w.counters.rejected.Add(1)
	metrics.RecordScoreWriteError(reason)
	metrics.RecordErrorByComponent("worker", reason)
}

// Pool manages multiple workers reading one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *counters
	logger   logger.Logger
}

// NewPool creates a worker pool. workerCount < 1 means runtime.NumCPU().
// opts apply to every worker.
func NewPool(workerCount int, queue Queue, writer Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		counters: &counters{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, writer, workerOpts...)
		pool.workers[i].counters = pool.counters
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stats returns the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Persisted: p.counters.persisted.Load(),
		Rejected:  p.counters.rejected.Load(),
		Failed:    p.counters.failed.Load(),
	}
}

// Shutdown closes the queue and waits for workers to drain it. Workers still
// busy when ctx (or the pool timeout) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-drainCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			_ = worker.Shutdown(drainCtx)
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool drain: %w", drainCtx.Err())
	}
	return nil
}
