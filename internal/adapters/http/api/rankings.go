package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/juryboard/internal/domain/ranking"
	"github.com/okian/juryboard/pkg/logger"
)

// RankingReader serves leaderboard reads.
type RankingReader interface {
	ListRankings(ctx context.Context, q ranking.Query) (ranking.Page, error)
	GetRanking(ctx context.Context, participantID int64, f ranking.Filters) (ranking.Record, error)
}

// RankingsHandler handles the participant-rankings routes.
type RankingsHandler struct {
	deps            RankingReader
	defaultPageSize int
	maxPageSize     int
	logger          logger.Logger
}

// NewRankingsHandler creates a rankings handler.
func NewRankingsHandler(deps RankingReader, defaultPageSize, maxPageSize int, l logger.Logger) *RankingsHandler {
	return &RankingsHandler{
		deps:            deps,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          l,
	}
}

// listParams mirrors the query string of GET /participant-rankings.
type listParams struct {
	Page        int    `query:"page" validate:"gte=1"`
	PageSize    int    `query:"page_size" validate:"gte=1,ltefield=MaxPageSize"`
	SectionID   *int64 `query:"section_id" validate:"omitempty,gte=1"`
	JuryID      *int64 `query:"jury_id" validate:"omitempty,gte=1"`
	MaxPageSize int    `query:"-" validate:"-"`
}

// rankingRecord is the wire shape of a leaderboard row.
type rankingRecord struct {
	ParticipantID     int64   `json:"participant_id"`
	PersonID          *int64  `json:"person_id"`
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	MiddleName        *string `json:"middle_name"`
	SectionID         *int64  `json:"section_id"`
	SectionName       *string `json:"section_name"`
	PresentationTopic *string `json:"presentation_topic"`
	TotalScore        float64 `json:"total_score"`
	ScoresCount       int     `json:"scores_count"`
	Rank              int     `json:"rank"`
}

type rankingPage struct {
	Total       int             `json:"total"`
	Page        int             `json:"page"`
	PageSize    int             `json:"page_size"`
	Pages       int             `json:"pages"`
	HasNext     bool            `json:"has_next"`
	HasPrevious bool            `json:"has_previous"`
	Items       []rankingRecord `json:"items"`
}

func toRecord(r ranking.Record) rankingRecord { //nolint:gocritic // hugeParam: value mapping
	return rankingRecord{
		ParticipantID:     r.ParticipantID,
		PersonID:          r.PersonID,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		MiddleName:        r.MiddleName,
		SectionID:         r.SectionID,
		SectionName:       r.SectionName,
		PresentationTopic: r.PresentationTopic,
		TotalScore:        ranking.Round2(r.TotalScore),
		ScoresCount:       r.ScoresCount,
		Rank:              r.Rank,
	}
}

// HandleList handles GET /participant-rankings.
func (h *RankingsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_rankings"
	q := r.URL.Query()

	var bad []fieldError
	p := listParams{
		Page:        intParam(q, "page", 1, &bad),
		PageSize:    intParam(q, "page_size", h.defaultPageSize, &bad),
		SectionID:   idParam(q, "section_id", &bad),
		JuryID:      idParam(q, "jury_id", &bad),
		MaxPageSize: h.maxPageSize,
	}
	sortBy, err := ranking.ParseSortField(q.Get("sort_by"))
	if err != nil {
		bad = append(bad, fieldError{Field: "sort_by", Message: "must be one of: total_score, last_name, first_name, rank, scores_count"})
	}
	sortOrder, err := ranking.ParseSortOrder(q.Get("sort_order"))
	if err != nil {
		bad = append(bad, fieldError{Field: "sort_order", Message: "must be one of: asc, desc"})
	}
	if len(bad) > 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest), bad...)
		return
	}
	if err := validate.Struct(p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest), validationDetails(err)...)
		return
	}

	page, err := h.deps.ListRankings(r.Context(), ranking.Query{
		Filters:   ranking.Filters{SectionID: p.SectionID, JuryID: p.JuryID},
		Page:      p.Page,
		PageSize:  p.PageSize,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	})
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}

	out := rankingPage{
		Total:       page.Total,
		Page:        page.Page,
		PageSize:    page.PageSize,
		Pages:       page.Pages,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
		Items:       make([]rankingRecord, 0, len(page.Items)),
	}
	for i := range page.Items {
		out.Items = append(out.Items, toRecord(page.Items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /participant-rankings/{participant_id}.
func (h *RankingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	q := r.URL.Query()

	var bad []fieldError
	participantID, err := strconv.ParseInt(r.PathValue("participant_id"), 10, 64)
	if err != nil || participantID < 1 {
		bad = append(bad, fieldError{Field: "participant_id", Message: "must be a positive integer"})
	}
	filters := ranking.Filters{
		SectionID: idParam(q, "section_id", &bad),
		JuryID:    idParam(q, "jury_id", &bad),
	}
	if len(bad) > 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest), bad...)
		return
	}

	rec, err := h.deps.GetRanking(r.Context(), participantID, filters)
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecord(rec))
}

// fail maps a read error to 404 or 500.
func (h *RankingsHandler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ranking.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, errors.New("participant ranking not found")))
		return
	}
	h.logger.Error(ctx, "ranking read failed", logger.String("op", op), logger.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
}

func intParam(q url.Values, name string, def int, bad *[]fieldError) int {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*bad = append(*bad, fieldError{Field: name, Message: "must be an integer"})
		return def
	}
	return v
}

// idParam parses an optional id; range checks are left to the validator
// except for the integer shape.
func idParam(q url.Values, name string, bad *[]fieldError) *int64 {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*bad = append(*bad, fieldError{Field: name, Message: "must be an integer"})
		return nil
	}
	if v < 1 {
		*bad = append(*bad, fieldError{Field: name, Message: "must be at least 1"})
		return nil
	}
	return &v
}
