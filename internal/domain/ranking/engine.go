package ranking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/juryboard/pkg/logger"
	"github.com/okian/juryboard/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const tracerName = "github.com/okian/juryboard/internal/domain/ranking"

// Engine computes leaderboards from a Source. It holds no per-query state;
// every call recomputes from the current store contents.
type Engine struct {
	src     Source
	lang    language.Tag
	timeout time.Duration
	tracer  trace.Tracer
	log     logger.Logger

	// collate.Collator is not safe for concurrent use.
	collators sync.Pool
}

// NewEngine creates an Engine reading from src.
func NewEngine(src Source, opts ...Option) *Engine {
	e := &Engine{
		src:    src,
		lang:   language.Russian,
		tracer: otel.Tracer(tracerName),
		log:    logger.Get().Named("ranking"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.collators.New = func() any {
		return collate.New(e.lang)
	}
	return e
}

// List returns one page of the leaderboard for q.
func (e *Engine) List(ctx context.Context, q Query) (Page, error) {
	q = q.normalized()
	ctx, span := e.tracer.Start(ctx, "ranking.List", trace.WithAttributes(
		attribute.String("sort_by", string(q.SortBy)),
		attribute.String("sort_order", string(q.SortOrder)),
		attribute.Int("page", q.Page),
		attribute.Int("page_size", q.PageSize),
	))
	defer span.End()

	start := time.Now()
	op := "list"
	if q.Filters.ParticipantID != nil {
		op = "get"
	}

	records, err := e.ranked(ctx, q.Filters)
	metrics.RecordRankingQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordRankingQuery(op, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Error(ctx, "ranking query failed", logger.String("op", op), logger.Error(err))
		return Page{}, err
	}
	span.SetAttributes(attribute.Int("scope_size", len(records)))

	if pid := q.Filters.ParticipantID; pid != nil {
		records = selectParticipant(records, *pid)
	}

	e.order(records, q.SortBy, q.SortOrder)
	p := paginate(records, q.Page, q.PageSize)

	metrics.RecordRankingQuery(op, "ok")
	span.SetStatus(codes.Ok, "")
	e.log.Debug(ctx, "ranking query served",
		logger.String("op", op),
		logger.Int("total", p.Total),
		logger.Int("items", len(p.Items)),
		logger.Duration("took", time.Since(start)),
	)
	return p, nil
}

// Get returns participantID's record within filters' scope. Its rank is the
// rank List reports for the same participant and filters.
func (e *Engine) Get(ctx context.Context, participantID int64, filters Filters) (Record, error) {
	filters.ParticipantID = &participantID
	p, err := e.List(ctx, Query{
		Filters:   filters,
		Page:      1,
		PageSize:  1,
		SortBy:    SortTotalScore,
		SortOrder: Desc,
	})
	if err != nil {
		return Record{}, err
	}
	if len(p.Items) == 0 {
		return Record{}, fmt.Errorf("%w: participant %d", ErrNotFound, participantID)
	}
	return p.Items[0], nil
}

// ranked loads the scope and assigns dense ranks.
func (e *Engine) ranked(ctx context.Context, f Filters) ([]Record, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	aggs, err := e.src.Aggregates(ctx, f.Scope())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataAccess, err)
	}
	metrics.RecordRankingScopeSize(len(aggs))
	return denseRank(aggs), nil
}

func selectParticipant(records []Record, id int64) []Record {
	for i := range records {
		if records[i].ParticipantID == id {
			return records[i : i+1]
		}
	}
	return nil
}
