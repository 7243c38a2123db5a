package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestScoreSubmissionValidate(t *testing.T) {
	convey.Convey("Given a score submission", t, func() {
		sub := model.ScoreSubmission{
			SubmissionID:  "sub-1",
			JuryID:        3,
			ParticipantID: 9,
			Criteria:      scoring.Criteria{Content: scoring.Float(7)},
			ReceivedAt:    time.Now(),
		}

		convey.Convey("When all fields are set", func() {
			convey.Convey("Then it should be valid", func() {
				convey.So(sub.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the submission id is empty", func() {
			sub.SubmissionID = ""

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(sub.Validate(), model.ErrInvalidSubmission), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an identifier is not positive", func() {
			sub.JuryID = 0

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(sub.Validate(), model.ErrInvalidSubmission), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a criterion is out of range", func() {
			sub.Criteria.Delivery = scoring.Float(11)
			err := sub.Validate()

			convey.Convey("Then both error kinds should match", func() {
				convey.So(errors.Is(err, model.ErrInvalidSubmission), convey.ShouldBeTrue)
				convey.So(errors.Is(err, scoring.ErrCriterionBounds), convey.ShouldBeTrue)
			})
		})
	})
}
