// Package testutil opens throwaway stores and seeds small conferences for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/okian/juryboard/internal/adapters/repository"
	"github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/internal/domain/scoring"
	"github.com/okian/juryboard/pkg/logger"
)

// SQLiteDSN returns a WAL-mode database file under dir.
func SQLiteDSN(dir string) string {
	return filepath.Join(dir, "juryboard.db") +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// OpenStore opens a migrated SQLite store that is closed when t ends.
func OpenStore(t testing.TB) *repository.SQLStore {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}
	s, err := repository.Open(context.Background(), repository.DriverSQLite, SQLiteDSN(t.TempDir()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Conference holds the ids created by Seed.
type Conference struct {
	SectionA, SectionB int64
	// Participants by last name.
	Participants map[string]int64
	// JuryA judges section A, JuryB judges B, JuryAB judges both.
	JuryA, JuryB, JuryAB int64
}

// Seed creates two sections with three participants each:
//
//	A: Abbott, Baker, Cole    B: Dyer, Evans, <no last name>
//
// and three juries. No scores are written.
func Seed(t testing.TB, s *repository.SQLStore) Conference {
	t.Helper()
	ctx := context.Background()
	must := func(id int64, err error) int64 {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		return id
	}

	c := Conference{Participants: map[string]int64{}}
	c.SectionA = must(s.CreateSection(ctx, "Robotics"))
	c.SectionB = must(s.CreateSection(ctx, "Chemistry"))

	add := func(section int64, last, first string) {
		p := repository.Person{FirstName: Str(first)}
		if last != "" {
			p.LastName = Str(last)
		}
		person := must(s.CreatePerson(ctx, p))
		c.Participants[last] = must(s.CreateParticipant(ctx, person, section, Str(first+"'s talk")))
	}
	add(c.SectionA, "Abbott", "Ann")
	add(c.SectionA, "Baker", "Bob")
	add(c.SectionA, "Cole", "Cid")
	add(c.SectionB, "Dyer", "Dan")
	add(c.SectionB, "Evans", "Eve")
	add(c.SectionB, "", "Nora")

	c.JuryA = must(s.CreateJury(ctx, nil))
	c.JuryB = must(s.CreateJury(ctx, nil))
	c.JuryAB = must(s.CreateJury(ctx, nil))
	for _, a := range [][2]int64{{c.SectionA, c.JuryA}, {c.SectionB, c.JuryB}, {c.SectionA, c.JuryAB}, {c.SectionB, c.JuryAB}} {
		if err := s.AssignJury(ctx, a[0], a[1]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return c
}

// Score writes a sheet with all five criteria set.
func Score(t testing.TB, s repository.ScoreWriter, id string, jury, participant int64, org, content, visuals, mechanics, delivery float64) {
	t.Helper()
	err := s.UpsertScore(context.Background(), model.ScoreSubmission{
		SubmissionID:  id,
		JuryID:        jury,
		ParticipantID: participant,
		Criteria: scoring.Criteria{
			Organization: scoring.Float(org),
			Content:      scoring.Float(content),
			Visuals:      scoring.Float(visuals),
			Mechanics:    scoring.Float(mechanics),
			Delivery:     scoring.Float(delivery),
		},
	})
	if err != nil {
		t.Fatalf("score %s: %v", id, err)
	}
}

// Str returns a pointer to v.
func Str(v string) *string { return &v }

// ID returns a pointer to v.
func ID(v int64) *int64 { return &v }
