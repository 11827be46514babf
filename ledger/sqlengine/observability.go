package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/contacorrente/ledger/ledger"
)

const (
	metricOperationDuration    = "ledgerstore_operation_duration_seconds"
	metricDatabaseErrors       = "ledgerstore_database_errors_total"
	metricIdempotencyConflicts = "ledgerstore_idempotency_conflicts_total"
	metricMovementsRead        = "ledgerstore_movements_read"

	spanNamePrefix = "ledgerstore."

	spanAttrOperation  = "operation"
	spanAttrErrorType  = "error_type"
	spanAttrDurationMS = "duration_ms"
	spanAttrFound      = "found"
	spanAttrRowCount   = "row_count"

	labelStatus = "status"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeBuildQuery          = "build_query_error"
	errorTypeScan                = "scan_error"
	errorTypeDatabase            = "database_error"
	errorTypeIdempotencyConflict = "idempotency_conflict"
	errorTypeCanceled            = "context_canceled"
	errorTypeTimeout             = "context_deadline_exceeded"
)

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// errorTypeOf classifies an error for metric labels and span attributes.
func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, ledger.ErrIdempotencyConflict):
		return errorTypeIdempotencyConflict
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	case errors.Is(err, ledger.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, ledger.ErrScanningDBRowFailed):
		return errorTypeScan
	default:
		return errorTypeDatabase
	}
}

/*** Logging ***/

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s Store) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	} else if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (s Store) logOperation(ctx context.Context, action string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	} else if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical failures at warn level.
func (s Store) logWarn(ctx context.Context, message string, err error) {
	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, logAttrError, err.Error())
	} else if s.logger != nil {
		s.logger.Warn(message, logAttrError, err.Error())
	}
}

// logError logs error information at error level.
func (s Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	} else if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}
}

/*** Metrics ***/

func (s Store) recordDuration(ctx context.Context, operation, status string, duration time.Duration) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextualCollector, ok := s.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
	} else {
		s.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
	}
}

func (s Store) recordValue(ctx context.Context, metricName, operation string, value float64) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       statusSuccess,
	}

	if contextualCollector, ok := s.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
	} else {
		s.metricsCollector.RecordValue(metricName, value, labels)
	}
}

func (s Store) recordError(ctx context.Context, operation, errorType string) {
	if s.metricsCollector == nil {
		return
	}

	metricName := metricDatabaseErrors
	if errorType == errorTypeIdempotencyConflict {
		metricName = metricIdempotencyConflicts
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := s.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricName, labels)
	} else {
		s.metricsCollector.IncrementCounter(metricName, labels)
	}
}

/*** Operation observer ***/

// operationObserver encapsulates the span and metrics lifecycle of one store operation.
type operationObserver struct {
	store     Store
	ctx       context.Context
	operation string
	span      SpanContext
	start     time.Time
}

// observe starts the span for an operation and returns the observer with the span's context.
func (s Store) observe(ctx context.Context, operation string) (*operationObserver, context.Context) {
	var span SpanContext

	if s.tracingCollector != nil {
		ctx, span = s.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
			spanAttrOperation: operation,
		})
	}

	return &operationObserver{
		store:     s,
		ctx:       ctx,
		operation: operation,
		span:      span,
		start:     time.Now(),
	}, ctx
}

// finishSuccess records the duration and closes the span with the given attributes.
func (o *operationObserver) finishSuccess(attrs map[string]string) {
	duration := time.Since(o.start)
	o.store.recordDuration(o.ctx, o.operation, statusSuccess, duration)

	if o.span == nil {
		return
	}

	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs[spanAttrDurationMS] = fmt.Sprintf("%.2f", toMilliseconds(duration))

	o.store.tracingCollector.FinishSpan(o.span, statusSuccess, attrs)
}

// finishError records the duration and the error, then closes the span.
func (o *operationObserver) finishError(err error) {
	duration := time.Since(o.start)
	errorType := errorTypeOf(err)

	o.store.recordDuration(o.ctx, o.operation, statusError, duration)
	o.store.recordError(o.ctx, o.operation, errorType)

	if o.span == nil {
		return
	}

	o.store.tracingCollector.FinishSpan(o.span, statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration)),
	})
}
