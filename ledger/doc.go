// Package ledger provides the core types and contracts of an append-only account ledger
// with idempotent movement posting.
//
// This package defines the domain types shared by the storage engines and the
// application layer, the error taxonomy, and the dependency-free observability
// interfaces that engines and handlers accept.
//
// Key types:
//   - Account: an entry of the external account registry
//   - Movement: a single credit or debit appended to an account
//   - Direction: the canonical credit/debit code ("C" or "D")
//
// Storage engines (see sqlengine and memengine) implement the small collaborator
// contracts the handlers declare: account lookup, movement writer, idempotency ledger,
// balance projection source, and a transaction boundary.
//
// Common usage pattern:
//
//	err := store.InTransaction(ctx, func(txCtx context.Context) error {
//		movementID, err := store.AppendMovement(txCtx, movement)
//		if err != nil {
//			return err
//		}
//
//		return store.Record(txCtx, requestID, movementID)
//	})
//	if errors.Is(err, ledger.ErrIdempotencyConflict) {
//		// another request with the same id committed first: look it up
//	}
package ledger
