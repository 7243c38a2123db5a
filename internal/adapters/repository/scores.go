package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/pkg/metrics"
)

// upsertScore inserts only when the jury is assigned to the participant's
// section; the write lock is taken by the first statement of the transaction.
const upsertScore = `
INSERT INTO jury_scores (jury_id, participant_id, organization, content, visuals, mechanics, delivery, comment)
SELECT sj.jury_id, p.id,
       CAST(? AS {{REAL}}), CAST(? AS {{REAL}}), CAST(? AS {{REAL}}), CAST(? AS {{REAL}}), CAST(? AS {{REAL}}),
       CAST(? AS TEXT)
FROM participants p
JOIN section_juries sj ON sj.section_id = p.section_id AND sj.jury_id = ?
WHERE p.id = ?
ON CONFLICT (jury_id, participant_id) DO UPDATE SET
    organization = excluded.organization,
    content = excluded.content,
    visuals = excluded.visuals,
    mechanics = excluded.mechanics,
    delivery = excluded.delivery,
    comment = excluded.comment,
    updated_at = CURRENT_TIMESTAMP
RETURNING id`

const insertScoreChange = `
INSERT INTO jury_score_changes (jury_score_id, submission_id, organization, content, visuals, mechanics, delivery, comment)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// UpsertScore implements ScoreWriter.
func (s *SQLStore) UpsertScore(ctx context.Context, sub model.ScoreSubmission) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert score: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	c := sub.Criteria
	var scoreID int64
	err = tx.QueryRowContext(ctx, s.q(upsertScore),
		arg(c.Organization), arg(c.Content), arg(c.Visuals), arg(c.Mechanics), arg(c.Delivery),
		arg(sub.Comment), sub.JuryID, sub.ParticipantID,
	).Scan(&scoreID)
	if errors.Is(err, sql.ErrNoRows) {
		return s.explainRejected(ctx, tx, sub)
	}
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}

	if _, err = tx.ExecContext(ctx, s.q(insertScoreChange),
		scoreID, sub.SubmissionID,
		arg(c.Organization), arg(c.Content), arg(c.Visuals), arg(c.Mechanics), arg(c.Delivery),
		arg(sub.Comment),
	); err != nil {
		return fmt.Errorf("upsert score: history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("upsert score: commit: %w", err)
	}
	return nil
}

// explainRejected reports why the guarded insert matched nothing.
// It always returns a non-nil error.
func (s *SQLStore) explainRejected(ctx context.Context, tx *sql.Tx, sub model.ScoreSubmission) error {
	var sectionID sql.NullInt64
	err := tx.QueryRowContext(ctx, s.q(`SELECT section_id FROM participants WHERE id = ?`), sub.ParticipantID).Scan(&sectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: participant %d", ErrNotFound, sub.ParticipantID)
	}
	if err != nil {
		return fmt.Errorf("upsert score: lookup participant: %w", err)
	}

	var one int
	err = tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM juries WHERE id = ?`), sub.JuryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: jury %d", ErrNotFound, sub.JuryID)
	}
	if err != nil {
		return fmt.Errorf("upsert score: lookup jury: %w", err)
	}

	return fmt.Errorf("%w: jury %d, participant %d", ErrNotAssigned, sub.JuryID, sub.ParticipantID)
}

// ScoreChanges returns the history rows for a participant, oldest first.
func (s *SQLStore) ScoreChanges(ctx context.Context, participantID int64) ([]model.ScoreChange, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT c.submission_id, js.jury_id, js.participant_id,
       COALESCE(c.organization, 0) + COALESCE(c.content, 0) + COALESCE(c.visuals, 0) +
       COALESCE(c.mechanics, 0) + COALESCE(c.delivery, 0)
FROM jury_score_changes c
JOIN jury_scores js ON js.id = c.jury_score_id
WHERE js.participant_id = ?
ORDER BY c.id`), participantID)
	if err != nil {
		return nil, fmt.Errorf("score changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.ScoreChange{}
	for rows.Next() {
		var c model.ScoreChange
		if err := rows.Scan(&c.SubmissionID, &c.JuryID, &c.ParticipantID, &c.Total); err != nil {
			return nil, fmt.Errorf("score changes: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("score changes: %w", err)
	}
	return out, nil
}
