// Package scoring defines a jury score sheet and the rules it must satisfy.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Criterion bounds, inclusive.
const (
	MinCriterion = 0.0
	MaxCriterion = 10.0
)

// Sentinel errors for score sheet validation.
var (
	ErrNoCriteria      = errors.New("score sheet has no criteria")
	ErrCriterionBounds = errors.New("criterion out of range")
)

// Criteria holds the five per-jury scores. A nil criterion was not scored.
type Criteria struct {
	Organization *float64
	Content      *float64
	Visuals      *float64
	Mechanics    *float64
	Delivery     *float64
}

// Named returns the criteria with their column names, in schema order.
func (c Criteria) Named() []struct {
	Name  string
	Value *float64
} {
	return []struct {
		Name  string
		Value *float64
	}{
		{"organization", c.Organization},
		{"content", c.Content},
		{"visuals", c.Visuals},
		{"mechanics", c.Mechanics},
		{"delivery", c.Delivery},
	}
}

// Validate checks every present criterion is a number in [0, 10] and that at
// least one criterion is present.
func (c Criteria) Validate() error {
	present := 0
	for _, cr := range c.Named() {
		if cr.Value == nil {
			continue
		}
		present++
		v := *cr.Value
		if math.IsNaN(v) || v < MinCriterion || v > MaxCriterion {
			return fmt.Errorf("%w: %s=%v", ErrCriterionBounds, cr.Name, v)
		}
	}
	if present == 0 {
		return ErrNoCriteria
	}
	return nil
}

// Total sums the present criteria; a missing criterion counts as zero.
func (c Criteria) Total() float64 {
	var sum float64
	for _, cr := range c.Named() {
		if cr.Value != nil {
			sum += *cr.Value
		}
	}
	return sum
}

// Float returns a pointer to v, for building Criteria literals.
func Float(v float64) *float64 { return &v }
