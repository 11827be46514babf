package sqlengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacorrente/ledger/ledger"
	. "github.com/contacorrente/ledger/testutil/helper"              //nolint:revive
	. "github.com/contacorrente/ledger/testutil/helper/storewrapper" //nolint:revive
)

func Benchmark_AppendAndRecord_InTransaction(b *testing.B) {
	// setup
	ctx := context.Background()
	store := CreateWrapperWithTestConfig(b).GetStore()

	// arrange
	account := GivenActiveAccount(b, ctx, store)
	amount := Amount(b, "10.00")
	fakeClock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// act
	b.ResetTimer()
	var commitTime time.Duration

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		fakeClock = fakeClock.Add(time.Second)
		movement := ledger.BuildMovement(GivenUniqueID(b), account.ID, amount, ledger.DirectionCredit, fakeClock)
		requestID := GivenUniqueID(b)

		b.StartTimer()
		start := time.Now()
		err := store.InTransaction(ctx, func(txCtx context.Context) error {
			movementID, appendErr := store.AppendMovement(txCtx, movement)
			if appendErr != nil {
				return appendErr
			}

			return store.Record(txCtx, requestID, movementID)
		})
		commitTime += time.Since(start)
		b.StopTimer()

		assert.NoError(b, err)
	}

	b.ReportMetric(float64(commitTime.Microseconds())/float64(b.N), "µs/commit-op")
}

func Benchmark_MovementsOf_With_Many_Movements(b *testing.B) {
	// setup
	ctx := context.Background()
	store := CreateWrapperWithTestConfig(b).GetStore()

	// arrange
	const movementsInStore = 1000

	account := GivenActiveAccount(b, ctx, store)
	amount := Amount(b, "1.00")
	fakeClock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < movementsInStore; i++ {
		fakeClock = fakeClock.Add(time.Second)
		_, err := store.AppendMovement(ctx, ledger.BuildMovement(GivenUniqueID(b), account.ID, amount, ledger.DirectionCredit, fakeClock))
		require.NoError(b, err)
	}

	readCtx := ledger.WithEventualConsistency(ctx)

	// act
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		movements, err := store.MovementsOf(readCtx, account.ID)

		b.StopTimer()
		assert.NoError(b, err)
		assert.Len(b, movements, movementsInStore)
		b.StartTimer()
	}
}
