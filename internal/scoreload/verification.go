package scoreload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/okian/juryboard/pkg/logger"
)

// Totals come back rounded to two decimals.
const totalTolerance = 0.005

// verifier checks leaderboard responses against a plan.
type verifier struct {
	c    *client
	p    *plan
	col  *collate.Collator
	errs []error
	n    int
}

func newVerifier(c *client, p *plan, lang language.Tag) *verifier {
	return &verifier{c: c, p: p, col: collate.New(lang)}
}

func (v *verifier) fail(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

// run executes every check and returns all violations joined.
func (v *verifier) run(ctx context.Context) error {
	for _, s := range v.p.sections {
		scope := url.Values{"section_id": {strconv.FormatInt(s, 10)}}
		rows, err := v.c.list(ctx, scope)
		if err != nil {
			return err
		}
		v.checkSection(s, rows)
		if err := v.checkSingles(ctx, rows, scope); err != nil {
			return err
		}
	}
	for juryID, sections := range v.p.juries {
		rows, err := v.c.list(ctx, url.Values{"jury_id": {strconv.FormatInt(juryID, 10)}})
		if err != nil {
			return err
		}
		v.checkJury(juryID, sections, rows)
	}
	logger.Get().Info(ctx, "verification finished", logger.Int("checks", v.n), logger.Int("violations", len(v.errs)))
	return errors.Join(v.errs...)
}

// checkSection verifies membership, totals, dense ranks and tie-break order.
func (v *verifier) checkSection(sectionID int64, rows []record) {
	want := 0
	for _, part := range v.p.participants {
		if part.section == sectionID {
			want++
		}
	}
	v.n++
	if len(rows) != want {
		v.fail("section %d: %d rows, want %d", sectionID, len(rows), want)
	}
	for _, r := range rows {
		v.n++
		if r.SectionID == nil || *r.SectionID != sectionID {
			v.fail("section %d: participant %d leaked from another section", sectionID, r.ParticipantID)
		}
		v.checkTotals(r)
	}
	v.n += 2
	if err := checkDenseRanks(rows); err != nil {
		v.fail("section %d: %w", sectionID, err)
	}
	if err := checkOrder(v.col, rows); err != nil {
		v.fail("section %d: %w", sectionID, err)
	}
}

func (v *verifier) checkTotals(r record) {
	want, ok := v.p.expectedTotal[r.ParticipantID]
	if !ok {
		return
	}
	if math.Abs(r.TotalScore-want) > totalTolerance {
		v.fail("participant %d: total %.2f, want %.2f", r.ParticipantID, r.TotalScore, want)
	}
	if r.ScoresCount != v.p.expectedCount[r.ParticipantID] {
		v.fail("participant %d: %d sheets, want %d", r.ParticipantID, r.ScoresCount, v.p.expectedCount[r.ParticipantID])
	}
}

// checkSingles verifies the single-record endpoint agrees with the list.
func (v *verifier) checkSingles(ctx context.Context, rows []record, scope url.Values) error {
	for _, r := range rows {
		got, err := v.c.get(ctx, r.ParticipantID, scope)
		v.n++
		switch {
		case errors.Is(err, errNotFound):
			v.fail("participant %d: listed but single lookup is 404", r.ParticipantID)
		case err != nil:
			return err
		case got.Rank != r.Rank || got.TotalScore != r.TotalScore:
			v.fail("participant %d: single rank %d/%.2f, list rank %d/%.2f",
				r.ParticipantID, got.Rank, got.TotalScore, r.Rank, r.TotalScore)
		}
	}
	return nil
}

// checkJury verifies the jury filter keeps exactly the judged sections and
// leaves totals untouched.
func (v *verifier) checkJury(juryID int64, sections []int64, rows []record) {
	want := 0
	for _, part := range v.p.participants {
		if slices.Contains(sections, part.section) {
			want++
		}
	}
	v.n++
	if len(rows) != want {
		v.fail("jury %d: %d rows, want %d", juryID, len(rows), want)
	}
	for _, r := range rows {
		v.n++
		if r.SectionID == nil || !slices.Contains(sections, *r.SectionID) {
			v.fail("jury %d: participant %d is outside the judged sections", juryID, r.ParticipantID)
		}
		v.checkTotals(r)
	}
	v.n++
	if err := checkDenseRanks(rows); err != nil {
		v.fail("jury %d: %w", juryID, err)
	}
}

// checkDenseRanks expects rows in total_score desc order: ranks start at 1
// and grow by one exactly when the total drops.
func checkDenseRanks(rows []record) error {
	for i, r := range rows {
		if i == 0 {
			if r.Rank != 1 {
				return fmt.Errorf("first rank is %d", r.Rank)
			}
			continue
		}
		prev := rows[i-1]
		switch {
		case r.TotalScore > prev.TotalScore:
			return fmt.Errorf("row %d: total %.2f above previous %.2f", i, r.TotalScore, prev.TotalScore)
		case r.TotalScore == prev.TotalScore && r.Rank != prev.Rank:
			return fmt.Errorf("row %d: tied total %.2f has rank %d, previous %d", i, r.TotalScore, r.Rank, prev.Rank)
		case r.TotalScore < prev.TotalScore && r.Rank != prev.Rank+1:
			return fmt.Errorf("row %d: rank %d after %d is not dense", i, r.Rank, prev.Rank)
		}
	}
	return nil
}

// checkOrder expects ties broken by last name, then first name (missing
// names last), then participant id.
func checkOrder(col *collate.Collator, rows []record) error {
	for i := 1; i < len(rows); i++ {
		a, b := rows[i-1], rows[i]
		if a.TotalScore != b.TotalScore {
			continue
		}
		c := compareName(col, a.LastName, b.LastName)
		if c == 0 {
			c = compareName(col, a.FirstName, b.FirstName)
		}
		if c == 0 && a.ParticipantID > b.ParticipantID {
			c = 1
		}
		if c > 0 {
			return fmt.Errorf("row %d: participant %d should precede %d", i, b.ParticipantID, a.ParticipantID)
		}
	}
	return nil
}

func compareName(col *collate.Collator, a, b *string) int {
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
