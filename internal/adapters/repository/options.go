package repository

import (
	"github.com/okian/juryboard/pkg/logger"
)

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMaxOpenConns caps the connection pool. Zero keeps the driver default.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithoutMigrate skips schema creation on open.
func WithoutMigrate() Option {
	return func(s *SQLStore) {
		s.migrate = false
	}
}
