// Package scoreload drives a running juryboard service end to end: it seeds a
// conference, submits score sheets over HTTP and checks the leaderboard.
package scoreload

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        `validate:"required,url"`
	Sections     int           `validate:"gte=1"`
	Participants int           `validate:"gte=1"` // per section
	Juries       int           `validate:"gte=0"` // per section
	SharedJuries int           `validate:"gte=0"` // assigned to every section
	Duplicates   int           `validate:"gte=0"` // sheets resent with the same submission id
	Workers      int           `validate:"gte=1"`
	RPS          float64       `validate:"gte=0"` // 0 means unlimited
	Timeout      time.Duration `validate:"gt=0"`  // per HTTP request
	PollTimeout  time.Duration `validate:"gt=0"`  // wait for the workers to persist everything
	Collation    string        `validate:"required,bcp47_language_tag"`
	Seed         uint64
}

// DefaultConfig returns a small conference against a local service.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:9080",
		Sections:     4,
		Participants: 30,
		Juries:       3,
		SharedJuries: 1,
		Duplicates:   20,
		Workers:      8,
		RPS:          0,
		Timeout:      10 * time.Second,
		PollTimeout:  time.Minute,
		Collation:    "ru",
		Seed:         1,
	}
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid load config: %w", err)
	}
	if c.Juries+c.SharedJuries == 0 {
		return fmt.Errorf("invalid load config: at least one jury is required")
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Sections     int
	Participants int
	Juries       int
	Sheets       int

	Accepted   int64
	Duplicates int64
	Throttled  int64 // 429 responses that were retried
	Failed     int64

	Checks int

	SubmitDuration  time.Duration
	PersistDuration time.Duration
	Duration        time.Duration
}
