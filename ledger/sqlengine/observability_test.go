package sqlengine_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacorrente/ledger/ledger"
	"github.com/contacorrente/ledger/ledger/sqlengine"
	. "github.com/contacorrente/ledger/testutil/helper"              //nolint:revive
	. "github.com/contacorrente/ledger/testutil/helper/storewrapper" //nolint:revive
)

func Test_Observability_Store_WithLogger_LogsQueriesAndOperations(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logHandler := NewLogHandlerSpy(false)
	store := CreateWrapperWithTestConfig(t, sqlengine.WithLogger(slog.New(logHandler))).GetStore()

	// arrange
	account := GivenActiveAccount(t, ctxWithTimeout, store)
	logHandler.Reset()

	// act
	_, _, err := store.FindAccount(ctxWithTimeout, account.ID)

	// assert
	assert.NoError(t, err)
	assert.True(t,
		logHandler.HasDebugLogWithMessage("executed sql for: find_account").
			WithDurationMS().
			WithAttributeKey("query").
			Assert(), "should log the sql statement with its duration",
	)
	assert.True(t,
		logHandler.HasInfoLogWithMessage("ledgerstore operation: account found").
			WithAttribute("account_id", account.ID).
			Assert(), "should log the operation outcome",
	)
}

func Test_Observability_Store_WithContextualLogger_LogsIdempotencyConflicts(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logHandler := NewLogHandlerSpy(false)
	store := CreateWrapperWithTestConfig(t, sqlengine.WithContextualLogger(slog.New(logHandler))).GetStore()

	// arrange
	account := GivenActiveAccount(t, ctxWithTimeout, store)
	winner := ledger.BuildMovement(GivenUniqueID(t), account.ID, Amount(t, "1"), ledger.DirectionCredit, time.Now())
	loser := ledger.BuildMovement(GivenUniqueID(t), account.ID, Amount(t, "1"), ledger.DirectionCredit, time.Now())
	for _, m := range []ledger.Movement{winner, loser} {
		_, err := store.AppendMovement(ctxWithTimeout, m)
		require.NoError(t, err, "error in arranging test data")
	}
	requestID := GivenUniqueID(t)
	require.NoError(t, store.Record(ctxWithTimeout, requestID, winner.ID), "error in arranging test data")

	// act
	err := store.Record(ctxWithTimeout, requestID, loser.ID)

	// assert
	assert.ErrorIs(t, err, ledger.ErrIdempotencyConflict)
	assert.True(t,
		logHandler.HasInfoLogWithMessage("ledgerstore operation: idempotency conflict detected").
			WithAttribute("request_id", requestID).
			Assert(), "should log the conflict",
	)
}

func Test_Observability_Store_WithMetrics_RecordsDurationsAndConflicts(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := NewMetricsCollectorSpy(true)
	store := CreateWrapperWithTestConfig(t, sqlengine.WithMetrics(metrics)).GetStore()

	// arrange
	account := GivenActiveAccount(t, ctxWithTimeout, store)
	winner := ledger.BuildMovement(GivenUniqueID(t), account.ID, Amount(t, "1"), ledger.DirectionCredit, time.Now())
	loser := ledger.BuildMovement(GivenUniqueID(t), account.ID, Amount(t, "1"), ledger.DirectionCredit, time.Now())
	for _, m := range []ledger.Movement{winner, loser} {
		_, err := store.AppendMovement(ctxWithTimeout, m)
		require.NoError(t, err, "error in arranging test data")
	}
	requestID := GivenUniqueID(t)
	require.NoError(t, store.Record(ctxWithTimeout, requestID, winner.ID), "error in arranging test data")

	// act
	_, queryErr := store.MovementsOf(ctxWithTimeout, account.ID)
	recordErr := store.Record(ctxWithTimeout, requestID, loser.ID)

	// assert
	assert.NoError(t, queryErr)
	assert.ErrorIs(t, recordErr, ledger.ErrIdempotencyConflict)

	assert.True(t,
		metrics.HasDurationRecordForMetric("ledgerstore_operation_duration_seconds").
			WithOperation("movements_of").
			WithStatus("success").
			Assert(), "should record the query duration",
	)
	assert.True(t,
		metrics.HasValueRecordForMetric("ledgerstore_movements_read").
			WithOperation("movements_of").
			Assert(), "should record the number of movements read",
	)
	assert.True(t,
		metrics.HasCounterRecordForMetric("ledgerstore_idempotency_conflicts_total").
			WithOperation("record").
			WithErrorType("idempotency_conflict").
			Assert(), "should count the conflict",
	)
}

func Test_Observability_Store_WithTracing_CreatesOneSpanPerOperation(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tracing := NewTracingCollectorSpy(true)
	store := CreateWrapperWithTestConfig(t, sqlengine.WithTracing(tracing)).GetStore()

	// arrange
	account := GivenActiveAccount(t, ctxWithTimeout, store)

	// act
	_, _, findErr := store.FindAccount(ctxWithTimeout, account.ID)
	_, _, lookupErr := store.Lookup(ctxWithTimeout, GivenUniqueID(t))

	// assert
	assert.NoError(t, findErr)
	assert.NoError(t, lookupErr)
	assert.True(t,
		tracing.HasSpanRecordForName("ledgerstore.find_account").
			WithStartAttribute("operation", "find_account").
			WithStatus("success").
			WithEndAttribute("found", "true").
			Assert(), "should trace the account lookup",
	)
	assert.True(t,
		tracing.HasSpanRecordForName("ledgerstore.lookup").
			WithStatus("success").
			WithEndAttribute("found", "false").
			Assert(), "should trace the idempotency lookup",
	)
}
