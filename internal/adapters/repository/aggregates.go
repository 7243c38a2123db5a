package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/juryboard/internal/domain/ranking"
	"github.com/okian/juryboard/pkg/logger"
	"github.com/okian/juryboard/pkg/metrics"
)

const aggregateSelect = `
SELECT p.id, p.person_id, pe.first_name, pe.last_name, pe.middle_name,
       p.section_id, s.name, p.presentation_topic,
       COALESCE(SUM(
           COALESCE(js.organization, 0) + COALESCE(js.content, 0) + COALESCE(js.visuals, 0) +
           COALESCE(js.mechanics, 0) + COALESCE(js.delivery, 0)
       ), 0) AS total_score,
       COUNT(js.id) AS scores_count
FROM participants p
LEFT JOIN people pe ON pe.id = p.person_id
LEFT JOIN sections s ON s.id = p.section_id
LEFT JOIN jury_scores js ON js.participant_id = p.id`

const aggregateGroup = `
GROUP BY p.id, p.person_id, pe.first_name, pe.last_name, pe.middle_name,
         p.section_id, s.name, p.presentation_topic`

// aggregateQuery builds the scope query. The jury filter is an existence
// check so a participant yields one row however many assignments match.
func aggregateQuery(scope ranking.Filters) (string, []any) {
	var (
		where []string
		args  []any
	)
	if scope.SectionID != nil {
		where = append(where, "p.section_id = ?")
		args = append(args, *scope.SectionID)
	}
	if scope.JuryID != nil {
		where = append(where, `EXISTS (
    SELECT 1 FROM section_juries sj
    WHERE sj.section_id = p.section_id AND sj.jury_id = ?)`)
		args = append(args, *scope.JuryID)
	}

	var b strings.Builder
	b.WriteString(aggregateSelect)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(aggregateGroup)
	return b.String(), args
}

// Aggregates implements ranking.Source. All rows come from one read
// transaction so the scope is a single snapshot.
func (s *SQLStore) Aggregates(ctx context.Context, scope ranking.Filters) (out []ranking.Aggregate, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency("aggregates", float64(time.Since(start).Microseconds())/1000)
	}()

	query, args := aggregateQuery(scope)

	tx, err := s.db.BeginTx(ctx, s.dialect.readTx)
	if err != nil {
		return nil, fmt.Errorf("aggregates: begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Warn(ctx, "aggregates rollback failed", logger.Error(rbErr))
		}
	}()

	rows, err := tx.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("aggregates: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out = []ranking.Aggregate{}
	for rows.Next() {
		var (
			a                         ranking.Aggregate
			personID, sectionID       sql.NullInt64
			first, last, middle, name sql.NullString
			topic                     sql.NullString
		)
		if err := rows.Scan(&a.ParticipantID, &personID, &first, &last, &middle,
			&sectionID, &name, &topic, &a.TotalScore, &a.ScoresCount); err != nil {
			return nil, fmt.Errorf("aggregates: scan: %w", err)
		}
		a.PersonID = nullInt64(personID)
		a.FirstName = nullString(first)
		a.LastName = nullString(last)
		a.MiddleName = nullString(middle)
		a.SectionID = nullInt64(sectionID)
		a.SectionName = nullString(name)
		a.PresentationTopic = nullString(topic)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregates: rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("aggregates: commit: %w", err)
	}
	return out, nil
}
