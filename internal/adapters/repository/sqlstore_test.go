package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/juryboard/internal/adapters/repository"
	"github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/internal/domain/ranking"
	"github.com/okian/juryboard/internal/domain/scoring"
	"github.com/okian/juryboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byParticipant(aggs []ranking.Aggregate) map[int64]ranking.Aggregate {
	out := make(map[int64]ranking.Aggregate, len(aggs))
	for _, a := range aggs {
		out[a.ParticipantID] = a
	}
	return out
}

func TestAggregatesSumSemantics(t *testing.T) {
	ctx := context.Background()
	s := testutil.OpenStore(t)
	c := testutil.Seed(t, s)
	abbott := c.Participants["Abbott"]

	testutil.Score(t, s, "s1", c.JuryA, abbott, 10, 8, 0, 0, 0)
	testutil.Score(t, s, "s2", c.JuryAB, abbott, 5, 5, 5, 5, 5)

	aggs, err := s.Aggregates(ctx, ranking.Filters{})
	require.NoError(t, err)
	require.Len(t, aggs, 6)

	got := byParticipant(aggs)[abbott]
	assert.Equal(t, 43.0, got.TotalScore)
	assert.Equal(t, 2, got.ScoresCount)
	require.NotNil(t, got.LastName)
	assert.Equal(t, "Abbott", *got.LastName)
	require.NotNil(t, got.SectionName)
	assert.Equal(t, "Robotics", *got.SectionName)
	require.NotNil(t, got.PresentationTopic)
	assert.Equal(t, "Ann's talk", *got.PresentationTopic)
	assert.Nil(t, got.MiddleName)
}

func TestAggregatesZeroScores(t *testing.T) {
	s := testutil.OpenStore(t)
	c := testutil.Seed(t, s)

	aggs, err := s.Aggregates(context.Background(), ranking.Filters{SectionID: testutil.ID(c.SectionB)})
	require.NoError(t, err)
	require.Len(t, aggs, 3)
	for _, a := range aggs {
		assert.Equal(t, 0.0, a.TotalScore)
		assert.Equal(t, 0, a.ScoresCount)
	}
	assert.Nil(t, byParticipant(aggs)[c.Participants[""]].LastName)
}

func TestAggregatesPartialCriteria(t *testing.T) {
	s := testutil.OpenStore(t)
	c := testutil.Seed(t, s)
	cole := c.Participants["Cole"]

	err := s.UpsertScore(context.Background(), model.ScoreSubmission{
		SubmissionID:  "partial",
		JuryID:        c.JuryA,
		ParticipantID: cole,
		Criteria:      scoring.Criteria{Content: scoring.Float(7.5), Delivery: scoring.Float(1.25)},
	})
	require.NoError(t, err)

	aggs, err := s.Aggregates(context.Background(), ranking.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 8.75, byParticipant(aggs)[cole].TotalScore)
	assert.Equal(t, 1, byParticipant(aggs)[cole].ScoresCount)
}

func TestAggregatesFilterIsolation(t *testing.T) {
	ctx := context.Background()
	s := testutil.OpenStore(t)
	c := testutil.Seed(t, s)
	testutil.Score(t, s, "s1", c.JuryA, c.Participants["Baker"], 1, 1, 1, 1, 1)
	testutil.Score(t, s, "s2", c.JuryAB, c.Participants["Baker"], 2, 2, 2, 2, 2)
	testutil.Score(t, s, "s3", c.JuryB, c.Participants["Dyer"], 3, 3, 3, 3, 3)

	t.Run("section", func(t *testing.T) {
		aggs, err := s.Aggregates(ctx, ranking.Filters{SectionID: testutil.ID(c.SectionA)})
		require.NoError(t, err)
		require.Len(t, aggs, 3)
		for _, a := range aggs {
			require.NotNil(t, a.SectionID)
			assert.Equal(t, c.SectionA, *a.SectionID)
		}
	})

	t.Run("jury", func(t *testing.T) {
		aggs, err := s.Aggregates(ctx, ranking.Filters{JuryID: testutil.ID(c.JuryB)})
		require.NoError(t, err)
		require.Len(t, aggs, 3)
		for _, a := range aggs {
			assert.Equal(t, c.SectionB, *a.SectionID)
		}
	})

	t.Run("jury assigned to two sections does not multiply rows", func(t *testing.T) {
		aggs, err := s.Aggregates(ctx, ranking.Filters{JuryID: testutil.ID(c.JuryAB)})
		require.NoError(t, err)
		require.Len(t, aggs, 6)
		baker := byParticipant(aggs)[c.Participants["Baker"]]
		assert.Equal(t, 15.0, baker.TotalScore)
		assert.Equal(t, 2, baker.ScoresCount)
	})

	t.Run("section outside the jury's assignment", func(t *testing.T) {
		aggs, err := s.Aggregates(ctx, ranking.Filters{SectionID: testutil.ID(c.SectionB), JuryID: testutil.ID(c.JuryA)})
		require.NoError(t, err)
		assert.Empty(t, aggs)
	})
}

func TestUpsertScore(t *testing.T) {
	ctx := context.Background()
	s := testutil.OpenStore(t)
	c := testutil.Seed(t, s)
	evans := c.Participants["Evans"]

	t.Run("a later sheet replaces the earlier one", func(t *testing.T) {
		testutil.Score(t, s, "first", c.JuryB, evans, 10, 10, 10, 10, 10)
		testutil.Score(t, s, "second", c.JuryB, evans, 1, 2, 3, 4, 5)

		aggs, err := s.Aggregates(ctx, ranking.Filters{SectionID: testutil.ID(c.SectionB)})
		require.NoError(t, err)
		got := byParticipant(aggs)[evans]
		assert.Equal(t, 15.0, got.TotalScore)
		assert.Equal(t, 1, got.ScoresCount)

		changes, err := s.ScoreChanges(ctx, evans)
		require.NoError(t, err)
		require.Len(t, changes, 2)
		assert.Equal(t, "first", changes[0].SubmissionID)
		assert.Equal(t, 50.0, changes[0].Total)
		assert.Equal(t, "second", changes[1].SubmissionID)
		assert.Equal(t, c.JuryB, changes[1].JuryID)
	})

	t.Run("unassigned jury is rejected", func(t *testing.T) {
		err := s.UpsertScore(ctx, model.ScoreSubmission{
			SubmissionID: "x", JuryID: c.JuryA, ParticipantID: evans,
			Criteria: scoring.Criteria{Content: scoring.Float(5)},
		})
		assert.True(t, errors.Is(err, repository.ErrNotAssigned), "got %v", err)
	})

	t.Run("unknown participant", func(t *testing.T) {
		err := s.UpsertScore(ctx, model.ScoreSubmission{
			SubmissionID: "y", JuryID: c.JuryA, ParticipantID: 9999,
			Criteria: scoring.Criteria{Content: scoring.Float(5)},
		})
		assert.True(t, errors.Is(err, repository.ErrNotFound), "got %v", err)
	})

	t.Run("unknown jury", func(t *testing.T) {
		err := s.UpsertScore(ctx, model.ScoreSubmission{
			SubmissionID: "z", JuryID: 9999, ParticipantID: evans,
			Criteria: scoring.Criteria{Content: scoring.Float(5)},
		})
		assert.True(t, errors.Is(err, repository.ErrNotFound), "got %v", err)
	})

	t.Run("out of range criteria violate the schema", func(t *testing.T) {
		err := s.UpsertScore(ctx, model.ScoreSubmission{
			SubmissionID: "w", JuryID: c.JuryAB, ParticipantID: evans,
			Criteria: scoring.Criteria{Content: scoring.Float(11)},
		})
		assert.Error(t, err)
		changes, err := s.ScoreChanges(ctx, evans)
		require.NoError(t, err)
		assert.Len(t, changes, 2)
	})
}

func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := testutil.OpenStore(t)
	c := testutil.Seed(t, s)
	abbott := c.Participants["Abbott"]

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jury := c.JuryA
			if i%2 == 1 {
				jury = c.JuryAB
			}
			errs <- s.UpsertScore(ctx, model.ScoreSubmission{
				SubmissionID: "c" + string(rune('a'+i)), JuryID: jury, ParticipantID: abbott,
				Criteria: scoring.Criteria{Organization: scoring.Float(float64(i % 10))},
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	aggs, err := s.Aggregates(ctx, ranking.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, byParticipant(aggs)[abbott].ScoresCount)
	changes, err := s.ScoreChanges(ctx, abbott)
	require.NoError(t, err)
	assert.Len(t, changes, 20)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	s := testutil.OpenStore(t)
	c := testutil.Seed(t, s)

	sections, err := s.SectionsForJury(ctx, c.JuryAB)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.SectionA, c.SectionB}, sections)

	require.NoError(t, s.AssignJury(ctx, c.SectionA, c.JuryA))
	sections, err = s.SectionsForJury(ctx, c.JuryA)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.SectionA}, sections)

	_, err = s.SectionsForJury(ctx, 12345)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	idle, err := s.CreateJury(ctx, nil)
	require.NoError(t, err)
	sections, err = s.SectionsForJury(ctx, idle)
	require.NoError(t, err)
	assert.Empty(t, sections)

	section, err := s.ParticipantSection(ctx, c.Participants["Dyer"])
	require.NoError(t, err)
	require.NotNil(t, section)
	assert.Equal(t, c.SectionB, *section)

	_, err = s.ParticipantSection(ctx, 12345)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, s.Ping(ctx))
	assert.Equal(t, repository.DriverSQLite, s.Driver())
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := repository.Open(context.Background(), "oracle", "whatever")
	assert.True(t, errors.Is(err, repository.ErrUnsupportedDriver))
}
