// Package repository persists the conference directory and jury scores, and
// serves per-participant score aggregates to the ranking engine.
package repository

import (
	"context"

	"github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/internal/domain/ranking"
)

// Person is a participant's or jury member's display name.
type Person struct {
	FirstName  *string
	LastName   *string
	MiddleName *string
}

// ScoreWriter persists jury score sheets.
type ScoreWriter interface {
	// UpsertScore stores sub as the jury's sheet for the participant,
	// replacing any earlier sheet from the same jury.
	// Returns ErrNotFound for an unknown participant or jury and
	// ErrNotAssigned when the jury does not judge the participant's section.
	UpsertScore(ctx context.Context, sub model.ScoreSubmission) error
}

// Directory manages sections, people, participants and jury assignments.
type Directory interface {
	CreateSection(ctx context.Context, name string) (int64, error)
	CreatePerson(ctx context.Context, p Person) (int64, error)
	CreateParticipant(ctx context.Context, personID, sectionID int64, topic *string) (int64, error)
	CreateJury(ctx context.Context, personID *int64) (int64, error)
	AssignJury(ctx context.Context, sectionID, juryID int64) error
	// SectionsForJury returns ErrNotFound for an unknown jury member.
	SectionsForJury(ctx context.Context, juryID int64) ([]int64, error)
	// ParticipantSection returns the participant's section, nil when it has
	// none, or ErrNotFound for an unknown participant.
	ParticipantSection(ctx context.Context, participantID int64) (*int64, error)
}

// Store provides read/write access to the leaderboard state.
type Store interface {
	ranking.Source
	ScoreWriter
	Directory

	// ScoreChanges lists the history rows of a participant's sheets, oldest first.
	ScoreChanges(ctx context.Context, participantID int64) ([]model.ScoreChange, error)
	Ping(ctx context.Context) error
	Close() error
}
