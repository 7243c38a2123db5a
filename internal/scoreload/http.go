package scoreload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okian/juryboard/pkg/logger"
)

// Retry configuration for throttled submissions.
const (
	maxSubmitAttempts = 20
	throttleBackoff   = 50 * time.Millisecond
	pollInterval      = 200 * time.Millisecond
	listPageSize      = 200
)

// record mirrors a leaderboard row.
type record struct {
	ParticipantID int64   `json:"participant_id"`
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	SectionID     *int64  `json:"section_id"`
	TotalScore    float64 `json:"total_score"`
	ScoresCount   int     `json:"scores_count"`
	Rank          int     `json:"rank"`
}

type rankingPage struct {
	Total       int      `json:"total"`
	Page        int      `json:"page"`
	PageSize    int      `json:"page_size"`
	Pages       int      `json:"pages"`
	HasNext     bool     `json:"has_next"`
	HasPrevious bool     `json:"has_previous"`
	Items       []record `json:"items"`
}

// errNotFound marks a 404 from the single-record endpoint.
var errNotFound = errors.New("not found")

// client talks to the juryboard HTTP API.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// health fails unless /healthz answers 200.
func (c *client) health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check returned %d", status)
	}
	return nil
}

// list fetches every page of the leaderboard for q.
func (c *client) list(ctx context.Context, q url.Values) ([]record, error) {
	var out []record
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(listPageSize))
		status, data, err := c.do(ctx, http.MethodGet, "/participant-rankings?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("list rankings returned %d: %s", status, data)
		}
		var p rankingPage
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		out = append(out, p.Items...)
		if !p.HasNext {
			if len(out) != p.Total {
				return nil, fmt.Errorf("paged %d rows but total is %d", len(out), p.Total)
			}
			return out, nil
		}
	}
}

// get fetches one participant's record within q's scope.
func (c *client) get(ctx context.Context, participantID int64, q url.Values) (record, error) {
	path := fmt.Sprintf("/participant-rankings/%d", participantID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	status, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return record{}, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return record{}, errNotFound
	default:
		return record{}, fmt.Errorf("get ranking returned %d: %s", status, data)
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return record{}, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// submitResult classifies one POST /scores exchange.
type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultFailed
)

// submit posts sheets concurrently, pacing with a token bucket and retrying
// 429 responses.
func (c *client) submit(ctx context.Context, cfg *Config, sheets []sheet, stats *Stats) error {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	limiter := rate.NewLimiter(limit, max(1, cfg.Workers))

	var accepted, duplicates, throttled, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range sheets {
		sh := sheets[i]
		g.Go(func() error {
			res, retries, err := c.submitOne(gctx, limiter, sh)
			throttled.Add(int64(retries))
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				logger.Get().Warn(gctx, "submission failed",
					logger.String("submission_id", sh.SubmissionID),
					logger.Error(err),
				)
			}
			switch res {
			case resultAccepted:
				accepted.Add(1)
			case resultDuplicate:
				duplicates.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Accepted += accepted.Load()
	stats.Duplicates += duplicates.Load()
	stats.Throttled += throttled.Load()
	stats.Failed += failed.Load()
	return err
}

func (c *client) submitOne(ctx context.Context, limiter *rate.Limiter, sh sheet) (submitResult, int, error) {
	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return resultFailed, attempt, fmt.Errorf("rate limit: %w", err)
		}
		status, data, err := c.do(ctx, http.MethodPost, "/scores", sh)
		if err != nil {
			return resultFailed, attempt, err
		}
		switch status {
		case http.StatusAccepted:
			return resultAccepted, attempt, nil
		case http.StatusOK:
			return resultDuplicate, attempt, nil
		case http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return resultFailed, attempt, ctx.Err()
			case <-time.After(throttleBackoff * time.Duration(attempt+1)):
			}
		default:
			return resultFailed, attempt, fmt.Errorf("POST /scores returned %d: %s", status, data)
		}
	}
	return resultFailed, maxSubmitAttempts, fmt.Errorf("still throttled after %d attempts", maxSubmitAttempts)
}

// waitPersisted polls each section until its scores_count sum reaches the
// number of planned sheets.
func (c *client) waitPersisted(ctx context.Context, p *plan, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pending := make(map[int64]int, len(p.sections))
	for _, s := range p.sections {
		pending[s] = p.sectionSheets[s]
	}
	for {
		for s, want := range pending {
			rows, err := c.list(ctx, url.Values{"section_id": {strconv.FormatInt(s, 10)}})
			if err != nil {
				return err
			}
			got := 0
			for _, r := range rows {
				got += r.ScoresCount
			}
			if got >= want {
				delete(pending, s)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d sections still missing sheets: %w", len(pending), ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
