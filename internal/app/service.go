// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/okian/juryboard/internal/adapters/mq/queue"
	"github.com/okian/juryboard/internal/adapters/mq/worker"
	"github.com/okian/juryboard/internal/adapters/repository"
	"github.com/okian/juryboard/internal/domain/dedupe"
	"github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/internal/domain/ranking"
	"github.com/okian/juryboard/pkg/logger"
	"github.com/okian/juryboard/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize  = 10_000
	defaultDedupeSize = 100_000
)

// ErrNotStarted is returned by SubmitScore before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	engine  *ranking.Engine
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	collation    language.Tag
	queryTimeout time.Duration
	retries      int
	retryBackoff time.Duration

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of submissions waiting for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithCollation sets the language used to order participant names.
func WithCollation(tag language.Tag) Option {
	return func(s *Service) {
		s.collation = tag
	}
}

// WithQueryTimeout bounds every leaderboard query.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.queryTimeout = d
		}
	}
}

// WithWriteRetry sets how often workers retry a failed store write.
func WithWriteRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		s.retries = attempts
		s.retryBackoff = backoff
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store. The caller keeps ownership of store
// and closes it after Stop.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		collation:    language.Russian,
		retries:      -1,
		retryBackoff: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.engine = ranking.NewEngine(store,
		ranking.WithCollation(s.collation),
		ranking.WithQueryTimeout(s.queryTimeout),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start creates the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("service start: %w", err)
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	// a sheet that never reached the store may be sent again under its id
	workerOpts := []worker.Option{worker.WithOnFailed(func(ctx context.Context, sub worker.Submission) {
		s.Unrecord(ctx, sub.SubmissionID)
	})}
	if s.retries > 0 || s.retryBackoff >= 0 {
		workerOpts = append(workerOpts, worker.WithRetry(s.retries, s.retryBackoff))
	}
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store, workerOpts...)
	// workers outlive the request that started them
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("collation", s.collation.String()),
	)
	return nil
}

// Stop stops accepting submissions and waits for queued ones to be written.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping leaderboard service...")

	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Warn(ctx, "submissions left unwritten", logger.Error(err))
		return fmt.Errorf("service stop: %w", err)
	}
	s.logger.Info(ctx, "leaderboard service stopped")
	return nil
}

// ListRankings returns one page of the leaderboard.
func (s *Service) ListRankings(ctx context.Context, q ranking.Query) (ranking.Page, error) {
	return s.engine.List(ctx, q)
}

// GetRanking returns a single participant's leaderboard record.
func (s *Service) GetRanking(ctx context.Context, participantID int64, f ranking.Filters) (ranking.Record, error) {
	return s.engine.Get(ctx, participantID, f)
}

// SubmitScore validates sub and hands it to the worker pool. A missing
// submission id is generated. The returned id is the one recorded.
// Sheets for an unknown participant or jury member fail with
// model.ErrNotFound, and sheets from a jury member outside the participant's
// section with model.ErrNotAssigned; neither is queued.
func (s *Service) SubmitScore(ctx context.Context, sub model.ScoreSubmission) (string, model.Outcome, error) {
	if sub.SubmissionID == "" {
		sub.SubmissionID = uuid.NewString()
	}
	if sub.ReceivedAt.IsZero() {
		sub.ReceivedAt = time.Now().UTC()
	}
	if err := sub.Validate(); err != nil {
		metrics.RecordScoreSubmission("invalid")
		return sub.SubmissionID, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return sub.SubmissionID, "", ErrNotStarted
	}
	if err := s.checkAssignment(ctx, sub); err != nil {
		return sub.SubmissionID, "", err
	}

	if s.SeenAndRecord(ctx, sub.SubmissionID) {
		metrics.RecordScoreSubmission(string(model.OutcomeDuplicate))
		s.logger.Debug(ctx, "duplicate submission", logger.String("submission_id", sub.SubmissionID))
		return sub.SubmissionID, model.OutcomeDuplicate, nil
	}

	if !s.queue.Enqueue(ctx, sub) {
		// let the client retry the same id
		s.Unrecord(ctx, sub.SubmissionID)
		metrics.RecordScoreSubmission(string(model.OutcomeBackpressure))
		s.logger.Warn(ctx, "submission rejected by full queue",
			logger.String("submission_id", sub.SubmissionID),
			logger.Int("queue_length", s.queue.Len(ctx)),
		)
		return sub.SubmissionID, model.OutcomeBackpressure, nil
	}

	metrics.RecordScoreSubmission(string(model.OutcomeAccepted))
	return sub.SubmissionID, model.OutcomeAccepted, nil
}

// checkAssignment rejects sheets the store would refuse.
func (s *Service) checkAssignment(ctx context.Context, sub model.ScoreSubmission) error { //nolint:gocritic // hugeParam: read only
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	section, err := s.store.ParticipantSection(ctx, sub.ParticipantID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordScoreSubmission("not_found")
		return fmt.Errorf("%w: participant %d", model.ErrNotFound, sub.ParticipantID)
	case err != nil:
		return fmt.Errorf("check assignment: %w", err)
	}

	sections, err := s.store.SectionsForJury(ctx, sub.JuryID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordScoreSubmission("not_found")
		return fmt.Errorf("%w: jury %d", model.ErrNotFound, sub.JuryID)
	case err != nil:
		return fmt.Errorf("check assignment: %w", err)
	}

	if section == nil || !slices.Contains(sections, *section) {
		metrics.RecordScoreSubmission("not_assigned")
		return fmt.Errorf("%w: jury %d, participant %d", model.ErrNotAssigned, sub.JuryID, sub.ParticipantID)
	}
	return nil
}

// ScoreChanges returns every recorded write of the participant's sheets,
// oldest first, or model.ErrNotFound for an unknown participant.
func (s *Service) ScoreChanges(ctx context.Context, participantID int64) ([]model.ScoreChange, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	if _, err := s.store.ParticipantSection(ctx, participantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: participant %d", model.ErrNotFound, participantID)
		}
		return nil, err
	}
	return s.store.ScoreChanges(ctx, participantID)
}

// SeenAndRecord atomically checks if a submission id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord forgets a submission id so it can be submitted again.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"dedupeSeen":  s.deduper.Size(),
		"collation":   s.collation.String(),
	}

	if s.started {
		queueLen := s.queue.Len(context.Background())
		pool := s.pool.Stats()

		stats["queueLength"] = queueLen
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["persisted"] = pool.Persisted
		stats["rejected"] = pool.Rejected
		stats["failed"] = pool.Failed

		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}
