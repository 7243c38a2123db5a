// Package ranking turns per-participant score aggregates into a dense-ranked,
// deterministically ordered, paginated leaderboard.
package ranking

import (
	"context"
	"fmt"
	"strings"
)

// SortField selects the primary ordering key.
type SortField string

// Supported sort fields.
const (
	SortTotalScore  SortField = "total_score"
	SortLastName    SortField = "last_name"
	SortFirstName   SortField = "first_name"
	SortRank        SortField = "rank"
	SortScoresCount SortField = "scores_count"
)

// SortOrder is asc or desc.
type SortOrder string

// Supported sort orders.
const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortField accepts the wire names of SortField, case-insensitively.
func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case SortTotalScore, SortLastName, SortFirstName, SortRank, SortScoresCount:
		return f, nil
	case "":
		return SortTotalScore, nil
	}
	return "", fmt.Errorf("%w: sort_by %q", ErrInvalidQuery, s)
}

// ParseSortOrder accepts asc or desc, case-insensitively.
func ParseSortOrder(s string) (SortOrder, error) {
	o := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case Asc, Desc:
		return o, nil
	case "":
		return Desc, nil
	}
	return "", fmt.Errorf("%w: sort_order %q", ErrInvalidQuery, s)
}

// Filters narrows the leaderboard. Nil means no restriction.
type Filters struct {
	SectionID *int64
	// JuryID restricts to sections the jury member is assigned to judge.
	JuryID *int64
	// ParticipantID selects one participant after ranking; it never
	// changes the scope ranks are computed over.
	ParticipantID *int64
}

// Scope returns the filters a Source must apply.
func (f Filters) Scope() Filters {
	return Filters{SectionID: f.SectionID, JuryID: f.JuryID}
}

// Query is a list request.
type Query struct {
	Filters   Filters
	Page      int
	PageSize  int
	SortBy    SortField
	SortOrder SortOrder
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 1
	}
	if q.SortBy == "" {
		q.SortBy = SortTotalScore
	}
	if q.SortOrder == "" {
		q.SortOrder = Desc
	}
	return q
}

// Aggregate is one in-scope participant with its summed scores.
// TotalScore is unrounded.
type Aggregate struct {
	ParticipantID     int64
	PersonID          *int64
	FirstName         *string
	LastName          *string
	MiddleName        *string
	SectionID         *int64
	SectionName       *string
	PresentationTopic *string
	TotalScore        float64
	ScoresCount       int
}

// Record is an Aggregate with its dense leaderboard rank.
type Record struct {
	Aggregate
	Rank int
}

// Page is one slice of the ordered leaderboard.
type Page struct {
	Items       []Record
	Total       int
	Page        int
	PageSize    int
	Pages       int
	HasNext     bool
	HasPrevious bool
}

// Source yields every participant in scope with aggregated scores, as one
// read-consistent snapshot. Only Filters.Scope() fields are set.
type Source interface {
	Aggregates(ctx context.Context, scope Filters) ([]Aggregate, error)
}
