package ranking

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
)

// denseRank orders aggs by total score descending and numbers them so that
// equal totals share a rank and the next lower total gets rank+1.
// Totals are compared unrounded.
func denseRank(aggs []Aggregate) []Record {
	records := make([]Record, len(aggs))
	for i := range aggs {
		records[i].Aggregate = aggs[i]
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(b.TotalScore, a.TotalScore)
	})

	rank := 0
	for i := range records {
		if i == 0 || records[i].TotalScore < records[i-1].TotalScore {
			rank++
		}
		records[i].Rank = rank
	}
	return records
}

// order sorts records by the primary key, then total_score desc, last_name
// asc, first_name asc (nulls last), then participant id so the order is total.
func (e *Engine) order(records []Record, by SortField, dir SortOrder) {
	col := e.collators.Get().(*collate.Collator)
	defer e.collators.Put(col)

	names := func(a, b *string) int { return compareNames(col, a, b) }

	slices.SortFunc(records, func(a, b Record) int {
		if c := primary(names, a, b, by, dir); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		if c := names(a.LastName, b.LastName); c != 0 {
			return c
		}
		if c := names(a.FirstName, b.FirstName); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
}

func primary(names func(a, b *string) int, a, b Record, by SortField, dir SortOrder) int {
	var c int
	switch by {
	case SortLastName, SortFirstName:
		x, y := a.LastName, b.LastName
		if by == SortFirstName {
			x, y = a.FirstName, b.FirstName
		}
		// nulls stay last in either direction
		switch {
		case x == nil && y == nil:
			return 0
		case x == nil:
			return 1
		case y == nil:
			return -1
		}
		c = names(x, y)
	case SortRank:
		c = cmp.Compare(a.Rank, b.Rank)
	case SortScoresCount:
		c = cmp.Compare(a.ScoresCount, b.ScoresCount)
	default:
		c = cmp.Compare(a.TotalScore, b.TotalScore)
	}
	if dir == Desc {
		return -c
	}
	return c
}

// compareNames orders by collation, then by bytes; nil sorts after any name.
func compareNames(col *collate.Collator, a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if c := col.CompareString(*a, *b); c != 0 {
		return c
	}
	return strings.Compare(*a, *b)
}
