package accountbalance

import (
	"context"
	"time"

	"github.com/contacorrente/ledger/ledger"
)

// LedgerStore defines the store operations needed by the QueryHandler.
type LedgerStore interface {
	FindAccount(ctx context.Context, accountID ledger.AccountID) (ledger.Account, bool, error)
	MovementsOf(ctx context.Context, accountID ledger.AccountID) (ledger.Movements, error)
}

// QueryHandler orchestrates the balance query: FindAccount -> MovementsOf -> ProjectBalance.
type QueryHandler struct {
	store        LedgerStore
	now          func() time.Time
	replicaReads bool
}

// Option configures a QueryHandler.
type Option func(*QueryHandler)

// WithClock replaces the clock used for the query timestamp.
func WithClock(now func() time.Time) Option {
	return func(h *QueryHandler) {
		h.now = now
	}
}

// WithReplicaReads lets the balance be served by a read replica. A replica may lag behind
// the primary, so a balance read right after a post can miss that movement.
// Without this option the balance reads from the primary and always reflects committed posts.
func WithReplicaReads() Option {
	return func(h *QueryHandler) {
		h.replicaReads = true
	}
}

// NewQueryHandler creates a new QueryHandler with the provided store.
func NewQueryHandler(store LedgerStore, opts ...Option) QueryHandler {
	handler := QueryHandler{
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle returns the current balance of the queried account.
// It fails with ledger.ErrAccountNotFound or ledger.ErrAccountInactive before reading any movement.
func (h QueryHandler) Handle(ctx context.Context, query Query) (AccountBalance, error) {
	if h.replicaReads {
		ctx = ledger.WithEventualConsistency(ctx)
	} else {
		ctx = ledger.WithStrongConsistency(ctx)
	}

	account, found, err := h.store.FindAccount(ctx, query.AccountID)
	if err != nil {
		return AccountBalance{}, err
	}

	if !found {
		return AccountBalance{}, ledger.ErrAccountNotFound
	}

	if !account.Active {
		return AccountBalance{}, ledger.ErrAccountInactive
	}

	movements, err := h.store.MovementsOf(ctx, account.ID)
	if err != nil {
		return AccountBalance{}, err
	}

	return AccountBalance{
		AccountID:      account.ID,
		AccountNumber:  account.Number,
		HolderName:     account.HolderName,
		QueryTimestamp: h.now().UTC(),
		Balance:        ProjectBalance(movements),
		MovementCount:  len(movements),
	}, nil
}
