package postmovement_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacorrente/ledger/app/features/command/postmovement"
	"github.com/contacorrente/ledger/app/shared/core"
	"github.com/contacorrente/ledger/app/shared/shell"
	"github.com/contacorrente/ledger/ledger"
	"github.com/contacorrente/ledger/ledger/memengine"
	. "github.com/contacorrente/ledger/testutil/helper"              //nolint:revive
	. "github.com/contacorrente/ledger/testutil/helper/storewrapper" //nolint:revive
)

var fakeClock = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func Test_CommandHandler_Handle_Success_Credit(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	handler := postmovement.NewCommandHandler(store, postmovement.WithClock(fixedClock))

	command := postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "100.00"), "C")

	// act
	result, err := handler.Handle(ctx, command)

	// assert
	require.NoError(t, err)
	assert.NotEmpty(t, result.MovementID)
	assert.False(t, result.Idempotent)
	assert.Equal(t, 1, result.RetryAttempts)

	movements, err := store.MovementsOf(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, result.MovementID, movements[0].ID)
	assert.True(t, Amount(t, "100").Equal(movements[0].Amount))
	assert.Equal(t, ledger.DirectionCredit, movements[0].Direction)
	assert.Equal(t, fakeClock, movements[0].CreatedAt)

	recordedID, found, err := store.Lookup(ctx, command.RequestID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, result.MovementID, recordedID)
}

func Test_CommandHandler_Handle_Replay_ReturnsOriginalMovement(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	handler := postmovement.NewCommandHandler(store)

	command := postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "25.50"), "D")
	first, err := handler.Handle(ctx, command)
	require.NoError(t, err)

	// act
	second, err := handler.Handle(ctx, command)

	// assert
	require.NoError(t, err)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.MovementID, second.MovementID)
	assert.Equal(t, 1, store.MovementCount())
}

func Test_CommandHandler_Handle_Replay_WithDifferentAmount_ReturnsOriginalMovement(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	handler := postmovement.NewCommandHandler(store)

	requestID := GivenUniqueID(t)
	first, err := handler.Handle(ctx, postmovement.BuildCommand(requestID, account.ID, Amount(t, "10"), "C"))
	require.NoError(t, err)

	// act
	second, err := handler.Handle(ctx, postmovement.BuildCommand(requestID, account.ID, Amount(t, "999"), "D"))

	// assert
	require.NoError(t, err)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.MovementID, second.MovementID)
	assert.Equal(t, 1, store.MovementCount())
}

func Test_CommandHandler_Handle_ValidationErrors_WriteNothing(t *testing.T) {
	ctx := context.Background()
	store := memengine.NewStore()
	active := GivenActiveAccount(t, ctx, store)
	inactive := GivenInactiveAccount(t, ctx, store)
	handler := postmovement.NewCommandHandler(store)

	testCases := []struct {
		name        string
		command     postmovement.Command
		expectedErr error
	}{
		{
			name:        "unknown account",
			command:     postmovement.BuildCommand(GivenUniqueID(t), GivenUniqueID(t), Amount(t, "1"), "C"),
			expectedErr: ledger.ErrAccountNotFound,
		},
		{
			name:        "inactive account",
			command:     postmovement.BuildCommand(GivenUniqueID(t), inactive.ID, Amount(t, "1"), "C"),
			expectedErr: ledger.ErrAccountInactive,
		},
		{
			name:        "zero amount",
			command:     postmovement.BuildCommand(GivenUniqueID(t), active.ID, Amount(t, "0"), "C"),
			expectedErr: ledger.ErrInvalidAmount,
		},
		{
			name:        "invalid direction",
			command:     postmovement.BuildCommand(GivenUniqueID(t), active.ID, Amount(t, "1"), "X"),
			expectedErr: ledger.ErrInvalidDirection,
		},
		{
			name:        "missing request id",
			command:     postmovement.BuildCommand("", active.ID, Amount(t, "1"), "C"),
			expectedErr: ledger.ErrMissingRequestID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			result, err := handler.Handle(ctx, tc.command)

			// assert
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Empty(t, result.MovementID)
			assert.Equal(t, 1, result.RetryAttempts)
			assert.Equal(t, 0, store.MovementCount())

			_, recorded, lookupErr := store.Lookup(ctx, tc.command.RequestID)
			require.NoError(t, lookupErr)
			assert.False(t, recorded)
		})
	}
}

func Test_CommandHandler_Handle_ConcurrentRequestsWithSameRequestID_CommitOneMovement(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	handler := postmovement.NewCommandHandler(store)

	command := postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "42.00"), "C")
	results := runConcurrently(t, 16, func() (shell.HandlerResult, error) {
		return handler.Handle(ctx, command)
	})

	// assert
	fresh := 0
	for _, result := range results {
		assert.Equal(t, results[0].MovementID, result.MovementID)
		if !result.Idempotent {
			fresh++
		}
	}

	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, store.MovementCount())
}

func Test_CommandHandler_Handle_ConcurrentRequestsWithSameRequestID_CommitOneMovement_SQLStore(t *testing.T) {
	// arrange
	ctx := context.Background()
	wrapper := CreateWrapperWithTestConfig(t)
	store := wrapper.GetStore()
	account := GivenActiveAccount(t, ctx, store)
	handler := postmovement.NewCommandHandler(store)

	command := postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "42.00"), "D")
	results := runConcurrently(t, 8, func() (shell.HandlerResult, error) {
		return handler.Handle(ctx, command)
	})

	// assert
	for _, result := range results {
		assert.Equal(t, results[0].MovementID, result.MovementID)
	}

	movements, err := store.MovementsOf(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, results[0].MovementID, movements[0].ID)
}

func Test_CommandHandler_Handle_ConflictResolvesToWinningMovement(t *testing.T) {
	// arrange
	ctx := context.Background()
	inner := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, inner)
	command := postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "5"), "C")

	winner := ledger.BuildMovement("winner-movement", account.ID, command.Amount, command.Direction, fakeClock)
	store := &hookedStore{Store: inner}
	store.beforeFirstLookup = func(_ context.Context) {
		// A concurrent request with the same id commits between our lookup and our commit.
		err := inner.InTransaction(ctx, func(txCtx context.Context) error {
			if _, err := inner.AppendMovement(txCtx, winner); err != nil {
				return err
			}
			return inner.Record(txCtx, command.RequestID, winner.ID)
		})
		require.NoError(t, err)
	}
	store.hideFirstLookup = true

	handler := postmovement.NewCommandHandler(store, postmovement.WithRetryOptions(shell.WithBaseDelay(time.Millisecond)))

	// act
	result, err := handler.Handle(ctx, command)

	// assert
	require.NoError(t, err)
	assert.True(t, result.Idempotent)
	assert.Equal(t, winner.ID, result.MovementID)
	assert.Equal(t, 2, result.RetryAttempts)
	assert.Equal(t, 1, inner.MovementCount())
}

func Test_CommandHandler_Handle_CanceledBeforeCommit_WritesNothing(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, inner)
	store := &hookedStore{Store: inner}
	store.beforeFirstLookup = func(_ context.Context) { cancel() }

	handler := postmovement.NewCommandHandler(store)
	command := postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "5"), "C")

	// act
	_, err := handler.Handle(ctx, command)

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, inner.MovementCount())

	_, recorded, lookupErr := inner.Lookup(context.Background(), command.RequestID)
	require.NoError(t, lookupErr)
	assert.False(t, recorded)

	retried, err := handler.Handle(context.Background(), command)
	require.NoError(t, err)
	assert.False(t, retried.Idempotent)
	assert.Equal(t, 1, inner.MovementCount())
}

func Test_CommandHandler_Handle_CanceledDuringCommit_CompletesTheCommit(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, inner)
	store := &hookedStore{Store: inner}
	store.beforeAppend = func(_ context.Context) { cancel() }

	handler := postmovement.NewCommandHandler(store)
	command := postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "5"), "C")

	// act
	result, err := handler.Handle(ctx, command)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, inner.MovementCount())

	replayed, err := handler.Handle(context.Background(), command)
	require.NoError(t, err)
	assert.True(t, replayed.Idempotent)
	assert.Equal(t, result.MovementID, replayed.MovementID)
	assert.Equal(t, 1, inner.MovementCount())
}

func Test_CommandHandler_Handle_StoreUnavailable_FailsWithoutRetry(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	handler := postmovement.NewCommandHandler(store)

	store.FailNextOperationWith(errors.Join(ledger.ErrStoreUnavailable, errors.New("connection refused")))

	// act
	result, err := handler.Handle(ctx, postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "5"), "C"))

	// assert
	assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)
	assert.Equal(t, 1, result.RetryAttempts)
	assert.Equal(t, 0, store.MovementCount())
}

func Test_CommandHandler_Handle_PublishesOnlyFreshMovements(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	publisher := &publisherSpy{}
	handler := postmovement.NewCommandHandler(store,
		postmovement.WithPublisher(publisher),
		postmovement.WithClock(fixedClock),
	)

	command := postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "12.34"), "D")

	// act
	result, err := handler.Handle(ctx, command)
	require.NoError(t, err)
	_, err = handler.Handle(ctx, command)
	require.NoError(t, err)

	// assert
	events := publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, core.MovementPostedEventType, events[0].EventType)
	assert.Equal(t, result.MovementID, events[0].MovementID)
	assert.Equal(t, command.RequestID, events[0].RequestID)
	assert.Equal(t, account.ID, events[0].AccountID)
	assert.Equal(t, "12.34", events[0].Amount)
	assert.Equal(t, "D", events[0].Direction)
	assert.Equal(t, fakeClock, events[0].OccurredAt)
}

func Test_CommandHandler_Handle_PublishFailure_IsLoggedAndIgnored(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	logSpy := NewLogHandlerSpy(false)
	handler := postmovement.NewCommandHandler(store,
		postmovement.WithPublisher(&publisherSpy{err: errors.New("broker down")}),
		postmovement.WithContextualLogger(slog.New(logSpy)),
	)

	// act
	result, err := handler.Handle(ctx, postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "1"), "C"))

	// assert
	require.NoError(t, err)
	assert.NotEmpty(t, result.MovementID)
	assert.True(t, logSpy.HasWarnLogWithMessage("publishing movement posted event failed").
		WithAttribute("movement_id", result.MovementID).
		WithAttribute("error", "broker down").
		Assert())
}

func Test_CommandHandler_Handle_UsesMovementIDGenerator(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := memengine.NewStore()
	account := GivenActiveAccount(t, ctx, store)
	handler := postmovement.NewCommandHandler(store, postmovement.WithMovementIDGenerator(func() ledger.MovementID {
		return "M1"
	}))

	// act
	result, err := handler.Handle(ctx, postmovement.BuildCommand(GivenUniqueID(t), account.ID, Amount(t, "1"), "C"))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "M1", result.MovementID)
}

/*** Test Helpers ***/

func fixedClock() time.Time {
	return fakeClock
}

func runConcurrently(t *testing.T, n int, fn func() (shell.HandlerResult, error)) []shell.HandlerResult {
	t.Helper()

	results := make([]shell.HandlerResult, n)
	errs := make([]error, n)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = fn()
		}(i)
	}

	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	return results
}

// hookedStore injects behavior between the handler's store calls.
type hookedStore struct {
	*memengine.Store

	beforeFirstLookup func(ctx context.Context)
	hideFirstLookup   bool
	beforeAppend      func(ctx context.Context)

	mu      sync.Mutex
	lookups int
}

func (s *hookedStore) Lookup(ctx context.Context, requestID ledger.RequestID) (ledger.MovementID, bool, error) {
	s.mu.Lock()
	s.lookups++
	first := s.lookups == 1
	s.mu.Unlock()

	if first && s.beforeFirstLookup != nil {
		s.beforeFirstLookup(ctx)
	}

	if first && s.hideFirstLookup {
		return "", false, nil
	}

	return s.Store.Lookup(ctx, requestID)
}

func (s *hookedStore) AppendMovement(ctx context.Context, movement ledger.Movement) (ledger.MovementID, error) {
	if s.beforeAppend != nil {
		s.beforeAppend(ctx)
	}

	return s.Store.AppendMovement(ctx, movement)
}

type publisherSpy struct {
	err    error
	mu     sync.Mutex
	events []core.MovementPosted
}

func (p *publisherSpy) Publish(_ context.Context, event core.MovementPosted) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func (p *publisherSpy) published() []core.MovementPosted {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]core.MovementPosted(nil), p.events...)
}
