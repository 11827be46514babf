package memengine

import (
	"context"
	"sync"

	"github.com/contacorrente/ledger/ledger"
)

type txContextKey struct{}

// Store keeps accounts, movements and idempotency keys in memory. Use NewStore to create one.
type Store struct {
	writer chan struct{}

	mu           sync.RWMutex
	accounts     map[ledger.AccountID]ledger.Account
	movements    map[ledger.AccountID]ledger.Movements
	movementIDs  map[ledger.MovementID]struct{}
	idempotency  map[ledger.RequestID]ledger.MovementID
	failNextWith error
}

// staged holds the writes of an open transaction.
type staged struct {
	movements   []ledger.Movement
	idempotency map[ledger.RequestID]ledger.MovementID
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		writer:      make(chan struct{}, 1),
		accounts:    make(map[ledger.AccountID]ledger.Account),
		movements:   make(map[ledger.AccountID]ledger.Movements),
		movementIDs: make(map[ledger.MovementID]struct{}),
		idempotency: make(map[ledger.RequestID]ledger.MovementID),
	}
}

// FailNextOperationWith makes the next store operation fail with err. It simulates an unavailable store.
func (s *Store) FailNextOperationWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failNextWith = err
}

// SeedAccounts inserts registry entries that do not exist yet. Existing accounts are left unchanged.
func (s *Store) SeedAccounts(_ context.Context, accounts ...ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range accounts {
		if _, exists := s.accounts[account.ID]; !exists {
			s.accounts[account.ID] = account
		}
	}

	return nil
}

// FindAccount reads an account from the registry.
func (s *Store) FindAccount(ctx context.Context, accountID ledger.AccountID) (ledger.Account, bool, error) {
	if err := s.checkAvailable(ctx); err != nil {
		return ledger.Account{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	account, found := s.accounts[accountID]

	return account, found, nil
}

// Lookup returns the movement id previously recorded for a request id, if any.
// Inside a transaction the transaction's own writes are visible.
func (s *Store) Lookup(ctx context.Context, requestID ledger.RequestID) (ledger.MovementID, bool, error) {
	if err := s.checkAvailable(ctx); err != nil {
		return "", false, err
	}

	if tx, ok := txFrom(ctx); ok {
		if movementID, found := tx.idempotency[requestID]; found {
			return movementID, true, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	movementID, found := s.idempotency[requestID]

	return movementID, found, nil
}

// AppendMovement stores a movement and returns its id.
func (s *Store) AppendMovement(ctx context.Context, movement ledger.Movement) (ledger.MovementID, error) {
	if err := s.checkAvailable(ctx); err != nil {
		return "", err
	}

	if tx, ok := txFrom(ctx); ok {
		tx.movements = append(tx.movements, movement)
		return movement.ID, nil
	}

	err := s.InTransaction(ctx, func(txCtx context.Context) error {
		_, appendErr := s.AppendMovement(txCtx, movement)
		return appendErr
	})
	if err != nil {
		return "", err
	}

	return movement.ID, nil
}

// Record maps a request id to a movement id. Recording the same pair again is a no-op,
// mapping it to a different movement fails with ledger.ErrIdempotencyConflict.
func (s *Store) Record(ctx context.Context, requestID ledger.RequestID, movementID ledger.MovementID) error {
	if err := s.checkAvailable(ctx); err != nil {
		return err
	}

	tx, ok := txFrom(ctx)
	if !ok {
		return s.InTransaction(ctx, func(txCtx context.Context) error {
			return s.Record(txCtx, requestID, movementID)
		})
	}

	existing, found := tx.idempotency[requestID]
	if !found {
		s.mu.RLock()
		existing, found = s.idempotency[requestID]
		s.mu.RUnlock()
	}

	if found {
		if existing != movementID {
			return ledger.ErrIdempotencyConflict
		}

		return nil
	}

	tx.idempotency[requestID] = movementID

	return nil
}

// MovementsOf returns all movements of an account in creation order.
func (s *Store) MovementsOf(ctx context.Context, accountID ledger.AccountID) (ledger.Movements, error) {
	if err := s.checkAvailable(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	movements := make(ledger.Movements, len(s.movements[accountID]))
	copy(movements, s.movements[accountID])

	return movements, nil
}

// InTransaction runs fn with exclusive write access. The writes made with the context passed to fn
// become visible together when fn returns nil and are discarded otherwise.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return ledger.ErrNestedTransaction
	}

	select {
	case s.writer <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.writer }()

	tx := &staged{idempotency: make(map[ledger.RequestID]ledger.MovementID)}

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		return err
	}

	s.commit(tx)

	return nil
}

func (s *Store) commit(tx *staged) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, movement := range tx.movements {
		s.movements[movement.AccountID] = insertOrdered(s.movements[movement.AccountID], movement)
		s.movementIDs[movement.ID] = struct{}{}
	}

	for requestID, movementID := range tx.idempotency {
		s.idempotency[requestID] = movementID
	}
}

func (s *Store) checkAvailable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNextWith != nil {
		err := s.failNextWith
		s.failNextWith = nil

		return err
	}

	return nil
}

// MovementCount returns the number of stored movements across all accounts.
func (s *Store) MovementCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.movementIDs)
}

func txFrom(ctx context.Context) (*staged, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*staged)
	return tx, ok
}

// insertOrdered keeps movements sorted by creation time, then id.
func insertOrdered(movements ledger.Movements, movement ledger.Movement) ledger.Movements {
	i := len(movements)
	for i > 0 && isAfter(movements[i-1], movement) {
		i--
	}

	movements = append(movements, ledger.Movement{})
	copy(movements[i+1:], movements[i:])
	movements[i] = movement

	return movements
}

func isAfter(a, b ledger.Movement) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}

	return a.CreatedAt.After(b.CreatedAt)
}
