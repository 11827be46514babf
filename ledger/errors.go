package ledger

import "errors"

// Validation errors, in the order the posting path checks them.
var (
	// ErrAccountNotFound is returned when the account id is unknown to the registry.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountInactive is returned when the account exists but is not active.
	ErrAccountInactive = errors.New("account is inactive")

	// ErrInvalidAmount is returned when the amount is not strictly positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInvalidDirection is returned when the direction is neither credit nor debit.
	ErrInvalidDirection = errors.New("invalid direction, use C or D")

	// ErrMissingRequestID is returned when no request id was supplied.
	ErrMissingRequestID = errors.New("request id must not be empty")
)

// Store errors.
var (
	// ErrIdempotencyConflict signals that a request id is already mapped to a movement,
	// usually because a concurrent request with the same id committed first.
	ErrIdempotencyConflict = errors.New("idempotency conflict, request id already recorded")

	// ErrStoreUnavailable wraps any I/O failure of the underlying store. It is retryable by the caller.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNilDatabaseConnection is returned when a store is constructed without a connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is configured.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrInvalidTableName is returned when a table name is not a plain SQL identifier.
	ErrInvalidTableName = errors.New("table name must be a plain identifier")

	// ErrBuildingQueryFailed is returned when a SQL statement cannot be built.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrScanningDBRowFailed is returned when a result row cannot be scanned.
	ErrScanningDBRowFailed = errors.New("scanning db row failed")

	// ErrNestedTransaction is returned when InTransaction is called with a context that already carries a transaction.
	ErrNestedTransaction = errors.New("nested transactions are not supported")
)
