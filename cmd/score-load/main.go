package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/juryboard/internal/adapters/repository"
	"github.com/okian/juryboard/internal/scoreload"
	"github.com/okian/juryboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultDSN     = "juryboard.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	defaultRunTime = 30 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	def := scoreload.DefaultConfig()
	var (
		baseURL      = flag.String("url", def.BaseURL, "Base URL of the service")
		dbDriver     = flag.String("db-driver", repository.DriverSQLite, "Database driver: sqlite or postgres")
		dbDSN        = flag.String("db-dsn", defaultDSN, "DSN of the database the service uses")
		sections     = flag.Int("sections", def.Sections, "Number of sections")
		participants = flag.Int("participants", def.Participants, "Participants per section")
		juries       = flag.Int("juries", def.Juries, "Juries per section")
		sharedJuries = flag.Int("shared-juries", def.SharedJuries, "Juries judging every section")
		duplicates   = flag.Int("duplicates", def.Duplicates, "Sheets resent with the same submission id")
		workers      = flag.Int("workers", def.Workers, "Concurrent submitters")
		rps          = flag.Float64("rps", def.RPS, "Request rate limit, 0 for none")
		timeout      = flag.Duration("timeout", def.Timeout, "HTTP request timeout")
		wait         = flag.Duration("wait", def.PollTimeout, "How long to wait for sheets to be persisted")
		collation    = flag.String("collation", def.Collation, "Language used to check name order")
		seed         = flag.Uint64("seed", def.Seed, "Random seed")
		logFile      = flag.String("log", "", "Write JSON logs to this file instead of stdout")
		verbose      = flag.Bool("verbose", false, "Debug logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		scoreload.ShowHelp(os.Stdout)
		return 0
	}

	closer, err := scoreload.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTime)
	defer cancel()

	store, err := repository.Open(ctx, *dbDriver, *dbDSN, repository.WithoutMigrate())
	if err != nil {
		logger.Get().Error(ctx, "failed to open database", logger.Error(err))
		return 1
	}
	defer func() { _ = store.Close() }()

	cfg := scoreload.Config{
		BaseURL:      *baseURL,
		Sections:     *sections,
		Participants: *participants,
		Juries:       *juries,
		SharedJuries: *sharedJuries,
		Duplicates:   *duplicates,
		Workers:      *workers,
		RPS:          *rps,
		Timeout:      *timeout,
		PollTimeout:  *wait,
		Collation:    *collation,
		Seed:         *seed,
	}
	stats, err := scoreload.Run(ctx, cfg, store)
	if stats != nil {
		scoreload.WriteSummary(os.Stdout, stats)
	}
	if err != nil {
		logger.Get().Error(ctx, "score load failed", logger.Error(err))
		os.Stderr.WriteString("FAIL: " + err.Error() + "\n")
		return 1
	}
	os.Stdout.WriteString("PASS\n")
	return 0
}
