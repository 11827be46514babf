package ledger

import (
	"context"
	"time"
)

// Logger receives SQL statements at debug level and operation outcomes at the other levels.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger is the context-aware variant of Logger. When both are configured it wins,
// so log records carry the trace and span ids of the active operation.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector records durations, counters and gauges of store operations and handlers.
type MetricsCollector interface {
	RecordDuration(name string, duration time.Duration, labels map[string]string)
	IncrementCounter(name string, labels map[string]string)
	RecordValue(name string, value float64, labels map[string]string)
}

// ContextualMetricsCollector is an optional extension of MetricsCollector.
// Stores and handlers type-assert for it and pass the operation context along.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, name string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, name string, labels map[string]string)
	RecordValueContext(ctx context.Context, name string, value float64, labels map[string]string)
}

// TracingCollector opens one span per store operation or handler call.
// See package oteladapters for the OpenTelemetry implementation.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(span SpanContext, status string, attrs map[string]string)
}

// SpanContext is a span started by a TracingCollector.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}
