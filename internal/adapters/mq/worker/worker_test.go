package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/juryboard/internal/adapters/mq/queue"
	worker "github.com/okian/juryboard/internal/adapters/mq/worker"
	"github.com/okian/juryboard/internal/adapters/repository"
	model "github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/internal/domain/scoring"
	logging "github.com/okian/juryboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

// Mock implementations for testing.
type mockQueue struct {
	ch   chan queue.Submission
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan queue.Submission, 64)}
}

func (mq *mockQueue) Dequeue(_ context.Context) <-chan queue.Submission { return mq.ch }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.ch) })
	return nil
}

type mockWriter struct {
	mu       sync.Mutex
	written  map[string]model.ScoreSubmission
	errs     map[int64]error // by participant id
	failures int             // transient failures before success
	calls    int
}

func newMockWriter() *mockWriter {
	return &mockWriter{written: map[string]model.ScoreSubmission{}, errs: map[int64]error{}}
}

func (mw *mockWriter) UpsertScore(_ context.Context, sub model.ScoreSubmission) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.calls++
	if err, ok := mw.errs[sub.ParticipantID]; ok {
		return err
	}
	if mw.failures > 0 {
		mw.failures--
		return errors.New("database is locked")
	}
	mw.written[sub.SubmissionID] = sub
	return nil
}

func (mw *mockWriter) count() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return len(mw.written)
}

func (mw *mockWriter) callCount() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.calls
}

func sheet(id string, participant int64) model.ScoreSubmission {
	return model.ScoreSubmission{
		SubmissionID:  id,
		JuryID:        1,
		ParticipantID: participant,
		Criteria:      scoring.Criteria{Content: scoring.Float(6)},
		ReceivedAt:    time.Now(),
	}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running InMemoryWorker", t, func() {
		q := newMockQueue()
		w := newMockWriter()
		wk := worker.NewInMemoryWorker(q, w, worker.WithName("test-worker"), worker.WithRetry(3, time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go wk.Run(ctx)

		convey.Convey("When a valid submission arrives", func() {
			q.ch <- sheet("s1", 10)

			convey.Convey("Then it should be written", func() {
				convey.So(eventually(func() bool { return w.count() == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a submission fails validation", func() {
			bad := sheet("s2", 10)
			bad.Criteria = scoring.Criteria{}
			q.ch <- bad
			q.ch <- sheet("s3", 11)

			convey.Convey("Then it should be skipped without stopping the worker", func() {
				convey.So(eventually(func() bool { return w.count() == 1 }), convey.ShouldBeTrue)
				convey.So(w.callCount(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the jury is not assigned", func() {
			w.errs[12] = fmt.Errorf("wrap: %w", repository.ErrNotAssigned)
			q.ch <- sheet("s4", 12)
			q.ch <- sheet("s5", 13)

			convey.Convey("Then it should not be retried", func() {
				convey.So(eventually(func() bool { return w.count() == 1 }), convey.ShouldBeTrue)
				convey.So(w.callCount(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the store fails transiently", func() {
			w.failures = 2
			q.ch <- sheet("s6", 14)

			convey.Convey("Then the write should be retried until it succeeds", func() {
				convey.So(eventually(func() bool { return w.count() == 1 }), convey.ShouldBeTrue)
				convey.So(w.callCount(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When shutting down", func() {
			err := wk.Shutdown(context.Background())

			convey.Convey("Then it should stop and tolerate a second call", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(wk.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		w := newMockWriter()
		pool := worker.NewPool(4, q, w, worker.WithRetry(2, time.Millisecond))
		ctx := context.Background()

		convey.Convey("When submissions are enqueued and the pool shuts down", func() {
			w.mu.Lock()
			w.errs[7] = repository.ErrNotFound
			w.mu.Unlock()
			pool.Start(ctx)
			for i := 0; i < 300; i++ {
				convey.So(q.Enqueue(ctx, sheet(fmt.Sprintf("s-%d", i), int64(i+1))), convey.ShouldBeTrue)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every queued submission should be handled before it returns", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.count(), convey.ShouldEqual, 299)
				stats := pool.Stats()
				convey.So(stats.Workers, convey.ShouldEqual, 4)
				convey.So(stats.Persisted, convey.ShouldEqual, 299)
				convey.So(stats.Rejected, convey.ShouldEqual, 1)
				convey.So(stats.Failed, convey.ShouldEqual, 0)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), newMockWriter())

		convey.Convey("Then it should default to at least one worker", func() {
			convey.So(pool.Stats().Workers, convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestWorkerPersistentFailure(t *testing.T) {
	convey.Convey("Given a store that keeps failing", t, func() {
		q := newMockQueue()
		w := newMockWriter()
		w.failures = 100
		var (
			mu     sync.Mutex
			failed []string
		)
		pool := worker.NewPool(1, q, w,
			worker.WithRetry(3, 0),
			worker.WithOnFailed(func(_ context.Context, sub worker.Submission) {
				mu.Lock()
				defer mu.Unlock()
				failed = append(failed, sub.SubmissionID)
			}),
		)
		pool.Start(context.Background())

		q.ch <- sheet("s1", 1)
		_ = pool.Shutdown(context.Background())

		convey.Convey("Then the submission should be counted as failed after the retries", func() {
			convey.So(w.callCount(), convey.ShouldEqual, 3)
			convey.So(pool.Stats().Failed, convey.ShouldEqual, 1)
		})

		convey.Convey("Then the failure callback should see it once", func() {
			mu.Lock()
			defer mu.Unlock()
			convey.So(failed, convey.ShouldResemble, []string{"s1"})
		})
	})
}
