package scoreload

import (
	"io"
	"os"
	"path/filepath"

	"github.com/okian/juryboard/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging sends JSON logs to logFile, or text logs to stdout when
// logFile is empty.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	if logFile == "" {
		if err := logger.Init(); err != nil {
			return nil, err
		}
		return io.NopCloser(nil), logger.SetLevelString(level)
	}

	file, err := os.OpenFile(filepath.Clean(logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithFormat("json"), logger.WithOutput(file)); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, logger.SetLevelString(level)
}

// ShowHelp prints usage information for the score-load tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `juryboard score-load
====================

Seeds a conference directly in the database, submits every jury score sheet
to a running juryboard service over HTTP, waits for the workers to persist
them, then checks the leaderboard: dense ranks, tie-break order, totals,
list/single agreement and section/jury filter isolation.

Usage:
  go run ./cmd/score-load [options]

Options:
  -url string          Base URL of the service (default "http://localhost:9080")
  -db-driver string    sqlite or postgres (default "sqlite")
  -db-dsn string       DSN of the database the service uses
  -sections int        Number of sections (default 4)
  -participants int    Participants per section (default 30)
  -juries int          Juries per section (default 3)
  -shared-juries int   Juries judging every section (default 1)
  -duplicates int      Sheets resent with the same submission id (default 20)
  -workers int         Concurrent submitters (default 8)
  -rps float           Request rate limit, 0 for none (default 0)
  -timeout duration    HTTP request timeout (default 10s)
  -wait duration       How long to wait for sheets to be persisted (default 1m)
  -collation string    Language used to check name order (default "ru")
  -seed uint           Random seed (default 1)
  -log string          Write JSON logs to this file instead of stdout
  -verbose             Debug logging
  -help                Show this help message

Examples:
  # Against a local service using the default SQLite file
  go run ./cmd/score-load -db-dsn 'juryboard.db?_pragma=busy_timeout(5000)'

  # Larger run against PostgreSQL, paced at 500 req/s
  go run ./cmd/score-load -db-driver postgres -db-dsn "$DSN" -sections 10 -participants 200 -rps 500
`)
}
