package scoreload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"

	"github.com/okian/juryboard/internal/adapters/repository"
	"github.com/okian/juryboard/pkg/logger"
)

// Run seeds a conference through dir, submits its score sheets to the
// service at cfg.BaseURL and verifies the resulting leaderboard. dir must
// write to the database the service reads.
func Run(ctx context.Context, cfg Config, dir repository.Directory) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	lang, err := language.Parse(cfg.Collation)
	if err != nil {
		return nil, fmt.Errorf("collation %q: %w", cfg.Collation, err)
	}
	log := logger.Get().Named("score-load")
	stats := &Stats{}
	start := time.Now()

	log.Info(ctx, "starting score load",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("sections", cfg.Sections),
		logger.Int("participants_per_section", cfg.Participants),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rps", cfg.RPS),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	p, err := seed(ctx, &cfg, dir)
	if err != nil {
		return stats, fmt.Errorf("seed: %w", err)
	}
	stats.Sections = len(p.sections)
	stats.Participants = len(p.participants)
	stats.Juries = len(p.juries)
	stats.Sheets = len(p.sheets)

	submitStart := time.Now()
	if err := c.submit(ctx, &cfg, p.sheets, stats); err != nil {
		return stats, fmt.Errorf("submit: %w", err)
	}
	if n := min(cfg.Duplicates, len(p.sheets)); n > 0 {
		if err := c.submit(ctx, &cfg, p.sheets[:n], stats); err != nil {
			return stats, fmt.Errorf("resubmit: %w", err)
		}
	}
	stats.SubmitDuration = time.Since(submitStart)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d submissions failed", stats.Failed)
	}

	persistStart := time.Now()
	if err := c.waitPersisted(ctx, p, cfg.PollTimeout); err != nil {
		return stats, fmt.Errorf("wait for workers: %w", err)
	}
	stats.PersistDuration = time.Since(persistStart)

	v := newVerifier(c, p, lang)
	err = v.run(ctx)
	stats.Checks = v.n
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}
	log.Info(ctx, "score load passed", logger.Duration("took", stats.Duration))
	return stats, nil
}

// WriteSummary prints a human readable report of stats.
func WriteSummary(w io.Writer, s *Stats) {
	rate := 0.0
	if s.SubmitDuration > 0 {
		rate = float64(s.Accepted+s.Duplicates) / s.SubmitDuration.Seconds()
	}
	fmt.Fprintf(w, "conference:  %s sections, %s participants, %s juries\n",
		humanize.Comma(int64(s.Sections)), humanize.Comma(int64(s.Participants)), humanize.Comma(int64(s.Juries)))
	fmt.Fprintf(w, "sheets:      %s planned, %s accepted, %s duplicate, %s throttled, %s failed\n",
		humanize.Comma(int64(s.Sheets)), humanize.Comma(s.Accepted), humanize.Comma(s.Duplicates),
		humanize.Comma(s.Throttled), humanize.Comma(s.Failed))
	fmt.Fprintf(w, "throughput:  %s req/s over %s\n", humanize.CommafWithDigits(rate, 1), s.SubmitDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "persisted:   in %s\n", s.PersistDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "checks:      %s\n", humanize.Comma(int64(s.Checks)))
	fmt.Fprintf(w, "total:       %s\n", s.Duration.Round(time.Millisecond))
}
