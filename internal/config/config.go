// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and JURYBOARD_* env vars.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// DBDriver is "sqlite" or "postgres".
	DBDriver string `koanf:"db_driver" validate:"oneof=sqlite postgres"`

	// DBDSN is the driver-specific data source name.
	DBDSN string `koanf:"db_dsn" validate:"required"`

	// DBMaxOpenConns caps the connection pool.
	DBMaxOpenConns int `koanf:"db_max_open_conns" validate:"gte=0"`

	// QueueSize bounds the in-memory score submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of score writer workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// DefaultPageSize applies when page_size is omitted.
	DefaultPageSize int `koanf:"default_page_size" validate:"gte=1,ltefield=MaxPageSize"`

	// MaxPageSize caps GET /participant-rankings?page_size.
	MaxPageSize int `koanf:"max_page_size" validate:"gte=1"`

	// QueryTimeoutMS bounds a single ranking query; 0 disables the bound.
	QueryTimeoutMS int `koanf:"query_timeout_ms" validate:"gte=0"`

	// SubmitRate and SubmitBurst configure the POST /scores token bucket.
	// A rate of 0 disables limiting.
	SubmitRate  float64 `koanf:"submit_rate" validate:"gte=0"`
	SubmitBurst int     `koanf:"submit_burst" validate:"gte=0"`

	// Collation is the BCP 47 language used to order names alphabetically.
	Collation string `koanf:"collation" validate:"required,bcp47_language_tag"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		DBDriver:        "sqlite",
		DBDSN:           "juryboard.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		DBMaxOpenConns:  16,
		QueueSize:       10_000,
		WorkerCount:     runtime.NumCPU(),
		DedupeSize:      100_000,
		DefaultPageSize: 25,
		MaxPageSize:     200,
		QueryTimeoutMS:  5_000,
		SubmitRate:      50,
		SubmitBurst:     100,
		Collation:       "ru",
	}
}

// QueryTimeout returns QueryTimeoutMS as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}
