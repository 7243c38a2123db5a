package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *SQLStore) insertID(ctx context.Context, what, query string, args ...any) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.q(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("create %s: %w", what, err)
	}
	return id, nil
}

// CreateSection adds a conference section.
func (s *SQLStore) CreateSection(ctx context.Context, name string) (int64, error) {
	return s.insertID(ctx, "section", `INSERT INTO sections (name) VALUES (?)`, name)
}

// CreatePerson adds a person record.
func (s *SQLStore) CreatePerson(ctx context.Context, p Person) (int64, error) {
	return s.insertID(ctx, "person",
		`INSERT INTO people (first_name, last_name, middle_name) VALUES (?, ?, ?)`,
		arg(p.FirstName), arg(p.LastName), arg(p.MiddleName))
}

// CreateParticipant registers personID in sectionID.
func (s *SQLStore) CreateParticipant(ctx context.Context, personID, sectionID int64, topic *string) (int64, error) {
	return s.insertID(ctx, "participant",
		`INSERT INTO participants (person_id, section_id, presentation_topic) VALUES (?, ?, ?)`,
		personID, sectionID, arg(topic))
}

// CreateJury adds a jury member, optionally linked to a person.
func (s *SQLStore) CreateJury(ctx context.Context, personID *int64) (int64, error) {
	return s.insertID(ctx, "jury", `INSERT INTO juries (person_id) VALUES (?)`, arg(personID))
}

// AssignJury lets juryID judge sectionID. Assigning twice is a no-op.
func (s *SQLStore) AssignJury(ctx context.Context, sectionID, juryID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO section_juries (section_id, jury_id) VALUES (?, ?)
ON CONFLICT (section_id, jury_id) DO NOTHING`), sectionID, juryID)
	if err != nil {
		return fmt.Errorf("assign jury %d to section %d: %w", juryID, sectionID, err)
	}
	return nil
}

// SectionsForJury lists the sections juryID is assigned to, ascending.
// An existing jury member without assignments gets an empty slice.
func (s *SQLStore) SectionsForJury(ctx context.Context, juryID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT section_id FROM section_juries WHERE jury_id = ? ORDER BY section_id`), juryID)
	if err != nil {
		return nil, fmt.Errorf("sections for jury: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sections for jury: scan: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sections for jury: %w", err)
	}
	if len(out) == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM juries WHERE id = ?`), juryID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: jury %d", ErrNotFound, juryID)
		}
		if err != nil {
			return nil, fmt.Errorf("sections for jury: lookup: %w", err)
		}
	}
	return out, nil
}

// ParticipantSection returns the section participantID presents in.
func (s *SQLStore) ParticipantSection(ctx context.Context, participantID int64) (*int64, error) {
	var section sql.NullInt64
	err := s.db.QueryRowContext(ctx, s.q(`SELECT section_id FROM participants WHERE id = ?`), participantID).Scan(&section)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: participant %d", ErrNotFound, participantID)
	}
	if err != nil {
		return nil, fmt.Errorf("participant section: %w", err)
	}
	return nullInt64(section), nil
}
