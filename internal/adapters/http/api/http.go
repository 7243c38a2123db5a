// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/okian/juryboard/pkg/logger"
)

// Default paging and submission limits.
const (
	defaultPageSize    = 25
	defaultMaxPageSize = 200
	defaultSubmitRate  = 50
	defaultSubmitBurst = 100
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	RankingReader
	ScoreSubmitter
	ScoreHistoryReader
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankingsHandler *RankingsHandler
	scoresHandler   *ScoresHandler
	historyHandler  *HistoryHandler

	defaultPageSize int
	maxPageSize     int
	submitRate      rate.Limit
	submitBurst     int
	logger          logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPageSizes sets the page size used when none is given and the largest
// page size a client may ask for.
func WithPageSizes(def, maxSize int) Option {
	return func(s *Server) {
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
		if def > 0 {
			s.defaultPageSize = def
		}
	}
}

// WithSubmitRate limits POST /scores to r requests per second with the given
// burst. r <= 0 disables the limit.
func WithSubmitRate(r float64, burst int) Option {
	return func(s *Server) {
		if r <= 0 {
			s.submitRate = rate.Inf
		} else {
			s.submitRate = rate.Limit(r)
		}
		if burst > 0 {
			s.submitBurst = burst
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		defaultPageSize: defaultPageSize,
		maxPageSize:     defaultMaxPageSize,
		submitRate:      defaultSubmitRate,
		submitBurst:     defaultSubmitBurst,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	if s.defaultPageSize > s.maxPageSize {
		s.defaultPageSize = s.maxPageSize
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.rankingsHandler = NewRankingsHandler(deps, s.defaultPageSize, s.maxPageSize, s.logger)
	s.scoresHandler = NewScoresHandler(deps, rate.NewLimiter(s.submitRate, s.submitBurst), s.logger)
	s.historyHandler = NewHistoryHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /participant-rankings", MetricsMiddleware(s.rankingsHandler.HandleList, "participant_rankings"))
	mux.HandleFunc("GET /participant-rankings/{participant_id}", MetricsMiddleware(s.rankingsHandler.HandleGet, "participant_ranking"))
	mux.HandleFunc("POST /scores", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))
	mux.HandleFunc("GET /participants/{participant_id}/score-changes", MetricsMiddleware(s.historyHandler.HandleList, "score_changes"))
}

// fieldError describes one rejected input field.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []fieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error envelope. Server errors never expose err.
func writeError(w http.ResponseWriter, status int, code string, err error, details ...fieldError) {
	if rw, ok := w.(*responseWriter); ok {
		rw.errorCode = code
	}
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = publicMessage(err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, Details: details})
}

// publicMessage drops the operation prefix of API errors.
func publicMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Err != nil {
			return apiErr.Err.Error()
		}
		return apiErr.Kind.Error()
	}
	return err.Error()
}

var validate = newValidator()

// newValidator reports fields by their query or json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// validationDetails converts validator output to field errors.
func validationDetails(err error) []fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldError{{Message: err.Error()}}
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "ltefield":
		return "exceeds the maximum page size"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag() + " validation"
}
