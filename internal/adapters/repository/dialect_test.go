package repository

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/juryboard/internal/domain/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDollarPlaceholders(t *testing.T) {
	assert.Equal(t, "a = $1 AND b IN ($2, $3)", dollarPlaceholders("a = ? AND b IN (?, ?)"))
	assert.Equal(t, "SELECT 1", dollarPlaceholders("SELECT 1"))
}

func TestDialectFor(t *testing.T) {
	d, err := dialectFor("SQLite")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, d.driver)
	assert.Equal(t, "x = ?", d.rebind("x = ?"))

	d, err = dialectFor("postgresql")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, d.driver)
	assert.True(t, d.readTx.ReadOnly)
	assert.Equal(t, "x = $1", d.rebind("x = ?"))

	_, err = dialectFor("oracle")
	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
}

func TestAggregateQuery(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		q, args := aggregateQuery(ranking.Filters{})
		assert.NotContains(t, q, "WHERE")
		assert.Empty(t, args)
	})

	t.Run("section and jury", func(t *testing.T) {
		section, jury := int64(4), int64(9)
		q, args := aggregateQuery(ranking.Filters{SectionID: &section, JuryID: &jury})
		assert.Contains(t, q, "p.section_id = ?")
		assert.Contains(t, q, "EXISTS (")
		assert.Equal(t, []any{int64(4), int64(9)}, args)
		assert.Equal(t, 2, strings.Count(q, "?"))
	})

	t.Run("participant is not part of the scope", func(t *testing.T) {
		pid := int64(1)
		q, args := aggregateQuery(ranking.Filters{ParticipantID: &pid})
		assert.NotContains(t, q, "WHERE")
		assert.Empty(t, args)
	})
}
