package scoring_test

import (
	"errors"
	"math"
	"testing"

	scoring "github.com/okian/juryboard/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCriteriaValidate(t *testing.T) {
	Convey("Given a score sheet", t, func() {
		Convey("When every criterion is within bounds", func() {
			c := scoring.Criteria{
				Organization: scoring.Float(0),
				Content:      scoring.Float(10),
				Visuals:      scoring.Float(5.5),
				Mechanics:    scoring.Float(7.25),
				Delivery:     scoring.Float(3),
			}

			Convey("Then it should be valid", func() {
				So(c.Validate(), ShouldBeNil)
			})
		})

		Convey("When only some criteria are present", func() {
			c := scoring.Criteria{Content: scoring.Float(8)}

			Convey("Then it should be valid", func() {
				So(c.Validate(), ShouldBeNil)
			})
		})

		Convey("When no criteria are present", func() {
			err := scoring.Criteria{}.Validate()

			Convey("Then it should report ErrNoCriteria", func() {
				So(errors.Is(err, scoring.ErrNoCriteria), ShouldBeTrue)
			})
		})

		Convey("When a criterion is out of range", func() {
			for _, v := range []float64{-0.01, 10.01, math.NaN(), math.Inf(1)} {
				err := scoring.Criteria{Visuals: scoring.Float(v)}.Validate()
				So(errors.Is(err, scoring.ErrCriterionBounds), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "visuals")
			}
		})
	})
}

func TestCriteriaTotal(t *testing.T) {
	Convey("Given score sheets from two juries", t, func() {
		a := scoring.Criteria{
			Organization: scoring.Float(10),
			Content:      scoring.Float(8),
			Visuals:      scoring.Float(0),
			Mechanics:    scoring.Float(0),
			Delivery:     scoring.Float(0),
		}
		b := scoring.Criteria{
			Organization: scoring.Float(5),
			Content:      scoring.Float(5),
			Visuals:      scoring.Float(5),
			Mechanics:    scoring.Float(5),
			Delivery:     scoring.Float(5),
		}

		Convey("Then totals should sum the criteria", func() {
			So(a.Total(), ShouldEqual, 18)
			So(b.Total(), ShouldEqual, 25)
			So(a.Total()+b.Total(), ShouldEqual, 43)
		})

		Convey("Then missing criteria should count as zero", func() {
			So(scoring.Criteria{Delivery: scoring.Float(4.5)}.Total(), ShouldEqual, 4.5)
			So(scoring.Criteria{}.Total(), ShouldEqual, 0)
		})
	})
}
