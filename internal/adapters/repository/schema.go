package repository

import (
	"context"
	"fmt"
)

// Criteria columns may be NULL (not scored) or within [0, 10].
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sections (
		id {{ID}},
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS people (
		id {{ID}},
		first_name TEXT,
		last_name TEXT,
		middle_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id {{ID}},
		person_id BIGINT REFERENCES people(id),
		section_id BIGINT REFERENCES sections(id),
		presentation_topic TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_section_id ON participants(section_id)`,
	`CREATE TABLE IF NOT EXISTS juries (
		id {{ID}},
		person_id BIGINT REFERENCES people(id)
	)`,
	`CREATE TABLE IF NOT EXISTS section_juries (
		id {{ID}},
		section_id BIGINT NOT NULL REFERENCES sections(id),
		jury_id BIGINT NOT NULL REFERENCES juries(id),
		UNIQUE (section_id, jury_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_section_juries_jury_id ON section_juries(jury_id)`,
	`CREATE TABLE IF NOT EXISTS jury_scores (
		id {{ID}},
		jury_id BIGINT NOT NULL REFERENCES juries(id),
		participant_id BIGINT NOT NULL REFERENCES participants(id),
		organization {{REAL}} CHECK (organization IS NULL OR (organization >= 0 AND organization <= 10)),
		content {{REAL}} CHECK (content IS NULL OR (content >= 0 AND content <= 10)),
		visuals {{REAL}} CHECK (visuals IS NULL OR (visuals >= 0 AND visuals <= 10)),
		mechanics {{REAL}} CHECK (mechanics IS NULL OR (mechanics >= 0 AND mechanics <= 10)),
		delivery {{REAL}} CHECK (delivery IS NULL OR (delivery >= 0 AND delivery <= 10)),
		comment TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (jury_id, participant_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jury_scores_participant_id ON jury_scores(participant_id)`,
	`CREATE TABLE IF NOT EXISTS jury_score_changes (
		id {{ID}},
		jury_score_id BIGINT NOT NULL REFERENCES jury_scores(id),
		submission_id TEXT NOT NULL,
		organization {{REAL}},
		content {{REAL}},
		visuals {{REAL}},
		mechanics {{REAL}},
		delivery {{REAL}},
		comment TEXT,
		changed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jury_score_changes_score_id ON jury_score_changes(jury_score_id)`,
}

// Migrate creates all tables. Safe to call multiple times.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, s.tmpl.Replace(stmt)); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
