package sqlengine

import (
	"regexp"

	"github.com/contacorrente/ledger/ledger"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Logger is the basic logger accepted by the Store.
type Logger = ledger.Logger

// ContextualLogger is the context-aware logger accepted by the Store.
type ContextualLogger = ledger.ContextualLogger

// MetricsCollector is the metrics collector accepted by the Store.
type MetricsCollector = ledger.MetricsCollector

// TracingCollector is the tracing collector accepted by the Store.
type TracingCollector = ledger.TracingCollector

// SpanContext is an active span returned by a TracingCollector.
type SpanContext = ledger.SpanContext

// Option defines a functional option for configuring the Store.
type Option func(*Store) error

// WithAccountTableName sets the name of the account registry table.
func WithAccountTableName(tableName string) Option {
	return func(s *Store) error {
		if err := validateTableName(tableName); err != nil {
			return err
		}

		s.accountTableName = tableName

		return nil
	}
}

// WithMovementTableName sets the name of the movement table.
func WithMovementTableName(tableName string) Option {
	return func(s *Store) error {
		if err := validateTableName(tableName); err != nil {
			return err
		}

		s.movementTableName = tableName

		return nil
	}
}

// WithIdempotencyTableName sets the name of the idempotency table.
func WithIdempotencyTableName(tableName string) Option {
	return func(s *Store) error {
		if err := validateTableName(tableName); err != nil {
			return err
		}

		s.idempotencyTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: operation outcomes such as appended movements and idempotency conflicts
// Warn level: non-critical issues like failures to close rows or roll back
// Error level: failures that cause an operation to fail.
func WithLogger(logger Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// It takes precedence over the basic logger and correlates log records with active spans.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives operation durations, database errors and idempotency conflicts.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. Every store operation becomes one span.
func WithTracing(collector TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}

func validateTableName(tableName string) error {
	if tableName == "" {
		return ledger.ErrEmptyTableName
	}

	if !tableNamePattern.MatchString(tableName) {
		return ledger.ErrInvalidTableName
	}

	return nil
}
