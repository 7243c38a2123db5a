package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/internal/domain/scoring"
	"github.com/okian/juryboard/pkg/logger"
)

const maxScoreBodyBytes = 64 << 10

// ScoreSubmitter accepts jury score sheets for asynchronous persistence.
type ScoreSubmitter interface {
	// SubmitScore returns the recorded submission id and what happened to it.
	SubmitScore(ctx context.Context, sub model.ScoreSubmission) (string, model.Outcome, error)
}

// ScoresHandler handles score submissions.
type ScoresHandler struct {
	deps    ScoreSubmitter
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewScoresHandler creates a scores handler. A nil limiter disables limiting.
func NewScoresHandler(deps ScoreSubmitter, limiter *rate.Limiter, l logger.Logger) *ScoresHandler {
	return &ScoresHandler{deps: deps, limiter: limiter, logger: l}
}

// scoreRequest mirrors the OpenAPI schema for POST /scores.
type scoreRequest struct {
	SubmissionID  string   `json:"submission_id" validate:"omitempty,max=128"`
	JuryID        int64    `json:"jury_id" validate:"required,gte=1"`
	ParticipantID int64    `json:"participant_id" validate:"required,gte=1"`
	Organization  *float64 `json:"organization" validate:"omitempty,gte=0,lte=10"`
	Content       *float64 `json:"content" validate:"omitempty,gte=0,lte=10"`
	Visuals       *float64 `json:"visuals" validate:"omitempty,gte=0,lte=10"`
	Mechanics     *float64 `json:"mechanics" validate:"omitempty,gte=0,lte=10"`
	Delivery      *float64 `json:"delivery" validate:"omitempty,gte=0,lte=10"`
	Comment       *string  `json:"comment" validate:"omitempty,max=2000"`
}

func (req scoreRequest) submission() model.ScoreSubmission { //nolint:gocritic // hugeParam: value mapping
	return model.ScoreSubmission{
		SubmissionID:  req.SubmissionID,
		JuryID:        req.JuryID,
		ParticipantID: req.ParticipantID,
		Criteria: scoring.Criteria{
			Organization: req.Organization,
			Content:      req.Content,
			Visuals:      req.Visuals,
			Mechanics:    req.Mechanics,
			Delivery:     req.Delivery,
		},
		Comment: req.Comment,
	}
}

type ackResponse struct {
	Status       string `json:"status"`
	Duplicate    bool   `json:"duplicate"`
	SubmissionID string `json:"submission_id"`
}

// HandlePostScore handles POST /scores requests.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if h.limiter != nil && !h.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "rate_limited", NewKind(op, ErrRateLimited))
		return
	}

	var req scoreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScoreBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("malformed JSON body")))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest), validationDetails(err)...)
		return
	}

	id, outcome, err := h.deps.SubmitScore(r.Context(), req.submission())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidSubmission):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		case errors.Is(err, model.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		case errors.Is(err, model.ErrNotAssigned):
			writeError(w, http.StatusUnprocessableEntity, "not_assigned", WrapKind(op, ErrNotAssigned, err))
			return
		}
		h.logger.Error(r.Context(), "score submission failed", logger.String("submission_id", id), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}

	switch outcome {
	case model.OutcomeDuplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, SubmissionID: id})
	case model.OutcomeBackpressure:
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: id})
	}
}
