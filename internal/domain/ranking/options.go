package ranking

import (
	"time"

	"github.com/okian/juryboard/pkg/logger"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
)

// Option configures an Engine.
type Option func(*Engine)

// WithCollation sets the language whose alphabet orders names.
func WithCollation(tag language.Tag) Option {
	return func(e *Engine) {
		e.lang = tag
	}
}

// WithQueryTimeout bounds each Source call. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
