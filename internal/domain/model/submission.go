// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/juryboard/internal/domain/scoring"
)

// Submission errors.
var (
	// ErrInvalidSubmission is returned by Validate.
	ErrInvalidSubmission = errors.New("invalid score submission")
	// ErrNotFound marks a submission naming an unknown participant or jury member.
	ErrNotFound = errors.New("participant or jury member not found")
	// ErrNotAssigned marks a jury member scoring outside their sections.
	ErrNotAssigned = errors.New("jury member is not assigned to the participant's section")
)

// Outcome is what ingestion did with a submission.
type Outcome string

// Ingestion outcomes.
const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeBackpressure Outcome = "backpressure"
)

// ScoreSubmission is one jury member's score sheet for one participant.
// Fields mirror the OpenAPI schema for POST /scores.
type ScoreSubmission struct {
	SubmissionID  string // idempotency key
	JuryID        int64
	ParticipantID int64
	Criteria      scoring.Criteria
	Comment       *string
	ReceivedAt    time.Time
}

// Validate checks identifiers and criteria bounds.
func (s ScoreSubmission) Validate() error {
	if s.SubmissionID == "" {
		return fmt.Errorf("%w: empty submission id", ErrInvalidSubmission)
	}
	if s.JuryID < 1 || s.ParticipantID < 1 {
		return fmt.Errorf("%w: jury_id and participant_id must be positive", ErrInvalidSubmission)
	}
	if err := s.Criteria.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	return nil
}

// ScoreChange is one recorded write of a jury sheet. Total sums the
// criteria present in that write.
type ScoreChange struct {
	SubmissionID  string
	JuryID        int64
	ParticipantID int64
	Total         float64
}
