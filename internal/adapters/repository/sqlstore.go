package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/okian/juryboard/pkg/logger"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db           *sql.DB
	dialect      dialect
	log          logger.Logger
	tmpl         *strings.Replacer
	maxOpenConns int
	migrate      bool
}

// Open connects to dsn with driver ("sqlite" or "postgres") and creates the
// schema unless WithoutMigrate is given.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}

	s := &SQLStore{
		db:      db,
		dialect: d,
		tmpl:    strings.NewReplacer("{{ID}}", d.idType, "{{REAL}}", d.realType),
		log:     logger.Get().Named("repository"),
		migrate: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	// every connection to :memory: is a separate database
	if d.driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		s.maxOpenConns = 1
	}
	if s.maxOpenConns > 0 {
		db.SetMaxOpenConns(s.maxOpenConns)
	}

	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if s.migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s.log.Info(ctx, "store opened", logger.String("driver", d.driver), logger.Bool("migrated", s.migrate))
	return s, nil
}

// Driver returns the normalized driver name.
func (s *SQLStore) Driver() string { return s.dialect.driver }

// Ping checks the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.dialect.driver, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// q expands type templates and rebinds placeholders.
func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(s.tmpl.Replace(query))
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// arg converts a nil pointer to SQL NULL.
func arg[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
