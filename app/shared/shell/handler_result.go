package shell

import (
	"time"

	"github.com/contacorrente/ledger/ledger"
)

// HandlerResult represents the outcome of a command handler execution.
// It captures the business outcome (which movement, was it a replay) and execution metadata
// (retry information) without coupling the handler to specific observability implementations.
type HandlerResult struct {
	// MovementID is the id of the stored movement, either freshly created or resolved from
	// the idempotency ledger.
	MovementID ledger.MovementID

	// Idempotent indicates that the request id was already recorded and no movement was written.
	Idempotent bool

	// RetryAttempts is the total number of attempts made (1 for no retries).
	RetryAttempts int

	// TotalRetryDelay is the cumulative time spent in backoff delays.
	TotalRetryDelay time.Duration

	// LastErrorType describes the final error encountered during retries.
	// Values: "none", "idempotency_conflict", "context_canceled", "context_deadline_exceeded", "other"
	LastErrorType string

	// RetriesExhausted is true only when all attempts failed with a retryable error.
	RetriesExhausted bool
}

// NewSuccessResult creates a HandlerResult for a freshly committed movement.
func NewSuccessResult(movementID ledger.MovementID, retryMetrics RetryMetrics) HandlerResult {
	return newResult(movementID, false, retryMetrics)
}

// NewIdempotentResult creates a HandlerResult for a replayed request id.
func NewIdempotentResult(movementID ledger.MovementID, retryMetrics RetryMetrics) HandlerResult {
	return newResult(movementID, true, retryMetrics)
}

// NewErrorResult creates a HandlerResult for failed operations that still reports retry metadata.
func NewErrorResult(retryMetrics RetryMetrics) HandlerResult {
	return newResult("", false, retryMetrics)
}

func newResult(movementID ledger.MovementID, idempotent bool, retryMetrics RetryMetrics) HandlerResult {
	return HandlerResult{
		MovementID:       movementID,
		Idempotent:       idempotent,
		RetryAttempts:    retryMetrics.Attempts,
		TotalRetryDelay:  retryMetrics.TotalDelay,
		LastErrorType:    retryMetrics.LastErrorType,
		RetriesExhausted: retryMetrics.RetriesExhausted,
	}
}
