package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/juryboard/internal/domain/model"
	"github.com/okian/juryboard/internal/domain/ranking"
	"github.com/okian/juryboard/pkg/logger"
)

// ScoreHistoryReader serves the write history of participants' sheets.
type ScoreHistoryReader interface {
	ScoreChanges(ctx context.Context, participantID int64) ([]model.ScoreChange, error)
}

// HistoryHandler handles the score-changes route.
type HistoryHandler struct {
	deps   ScoreHistoryReader
	logger logger.Logger
}

// NewHistoryHandler creates a score history handler.
func NewHistoryHandler(deps ScoreHistoryReader, l logger.Logger) *HistoryHandler {
	return &HistoryHandler{deps: deps, logger: l}
}

type scoreChange struct {
	SubmissionID string  `json:"submission_id"`
	JuryID       int64   `json:"jury_id"`
	TotalScore   float64 `json:"total_score"`
}

type scoreChanges struct {
	ParticipantID int64         `json:"participant_id"`
	Changes       []scoreChange `json:"changes"`
}

// HandleList handles GET /participants/{participant_id}/score-changes.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_changes"

	participantID, err := strconv.ParseInt(r.PathValue("participant_id"), 10, 64)
	if err != nil || participantID < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest),
			fieldError{Field: "participant_id", Message: "must be a positive integer"})
		return
	}

	changes, err := h.deps.ScoreChanges(r.Context(), participantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, errors.New("participant not found")))
			return
		}
		h.logger.Error(r.Context(), "score history read failed", logger.Int64("participant_id", participantID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}

	out := scoreChanges{ParticipantID: participantID, Changes: make([]scoreChange, 0, len(changes))}
	for _, c := range changes {
		out.Changes = append(out.Changes, scoreChange{
			SubmissionID: c.SubmissionID,
			JuryID:       c.JuryID,
			TotalScore:   ranking.Round2(c.Total),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
