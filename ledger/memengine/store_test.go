package memengine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacorrente/ledger/ledger"
	"github.com/contacorrente/ledger/ledger/memengine"
	. "github.com/contacorrente/ledger/testutil/helper" //nolint:revive
)

func Test_MemStore_FindAccount(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)

	// act
	found, ok, err := store.FindAccount(ctx, account.ID)
	_, unknownOK, unknownErr := store.FindAccount(ctx, GivenUniqueID(t))

	// assert
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, account, found)
	assert.NoError(t, unknownErr)
	assert.False(t, unknownOK)
}

func Test_MemStore_MovementsOf_ReturnsMovementsInCreationOrder(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	fakeClock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	late := ledger.BuildMovement("m-late", account.ID, Amount(t, "1"), ledger.DirectionCredit, fakeClock.Add(time.Minute))
	early := ledger.BuildMovement("m-early", account.ID, Amount(t, "2"), ledger.DirectionDebit, fakeClock)
	sameTime := ledger.BuildMovement("m-same", account.ID, Amount(t, "3"), ledger.DirectionCredit, fakeClock)

	for _, m := range []ledger.Movement{late, early, sameTime} {
		_, err := store.AppendMovement(ctx, m)
		require.NoError(t, err, "error in arranging test data")
	}

	// act
	movements, err := store.MovementsOf(ctx, account.ID)

	// assert
	assert.NoError(t, err)
	require.Len(t, movements, 3)
	assert.Equal(t, "m-early", movements[0].ID)
	assert.Equal(t, "m-same", movements[1].ID)
	assert.Equal(t, "m-late", movements[2].ID)
}

func Test_MemStore_Record(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	requestID := GivenUniqueID(t)

	// act
	firstErr := store.Record(ctx, requestID, "m1")
	repeatErr := store.Record(ctx, requestID, "m1")
	conflictErr := store.Record(ctx, requestID, "m2")

	// assert
	assert.NoError(t, firstErr)
	assert.NoError(t, repeatErr)
	assert.ErrorIs(t, conflictErr, ledger.ErrIdempotencyConflict)

	movementID, found, err := store.Lookup(ctx, requestID)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "m1", movementID)
}

func Test_MemStore_InTransaction_DiscardsWrites_WhenFnFails(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	requestID := GivenUniqueID(t)
	movement := ledger.BuildMovement(GivenUniqueID(t), account.ID, Amount(t, "10"), ledger.DirectionCredit, time.Now())

	// act
	err := store.InTransaction(ctx, func(txCtx context.Context) error {
		_, appendErr := store.AppendMovement(txCtx, movement)
		require.NoError(t, appendErr)
		require.NoError(t, store.Record(txCtx, requestID, movement.ID))

		movementID, found, lookupErr := store.Lookup(txCtx, requestID)
		require.NoError(t, lookupErr)
		assert.True(t, found, "own writes must be visible inside the transaction")
		assert.Equal(t, movement.ID, movementID)

		return assert.AnError
	})

	// assert
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, store.MovementCount())

	_, found, lookupErr := store.Lookup(ctx, requestID)
	assert.NoError(t, lookupErr)
	assert.False(t, found)
}

func Test_MemStore_InTransaction_RejectsNestedTransactions(t *testing.T) {
	// arrange
	store := memengine.NewStore()

	// act
	var nestedErr error
	err := store.InTransaction(context.Background(), func(txCtx context.Context) error {
		nestedErr = store.InTransaction(txCtx, func(context.Context) error { return nil })
		return nil
	})

	// assert
	assert.NoError(t, err)
	assert.ErrorIs(t, nestedErr, ledger.ErrNestedTransaction)
}

func Test_MemStore_OnlyOneOfConcurrentTransactions_RecordsTheSameRequestID(t *testing.T) {
	// arrange
	const numWriters = 16
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	requestID := GivenUniqueID(t)

	var wg sync.WaitGroup
	errs := make([]error, numWriters)

	// act
	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			movement := ledger.BuildMovement(GivenUniqueID(t), account.ID, Amount(t, "5"), ledger.DirectionCredit, time.Now())
			errs[i] = store.InTransaction(ctx, func(txCtx context.Context) error {
				if _, appendErr := store.AppendMovement(txCtx, movement); appendErr != nil {
					return appendErr
				}

				return store.Record(txCtx, requestID, movement.ID)
			})
		}(i)
	}
	wg.Wait()

	// assert
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		assert.ErrorIs(t, err, ledger.ErrIdempotencyConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, store.MovementCount())
}

func Test_MemStore_FailNextOperationWith(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	store.FailNextOperationWith(ledger.ErrStoreUnavailable)

	// act
	_, _, firstErr := store.Lookup(ctx, "r1")
	_, _, secondErr := store.Lookup(ctx, "r1")

	// assert
	assert.ErrorIs(t, firstErr, ledger.ErrStoreUnavailable)
	assert.NoError(t, secondErr)
}
