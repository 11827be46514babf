// Package postmovement implements the use case of posting a credit or debit movement to an account.
//
// The handler validates the target account and the movement, resolves replays through the
// idempotency ledger and commits the movement together with its idempotency record.
// A request id maps to exactly one movement, also under concurrent retries: the store's
// uniqueness constraint decides the winner and the losers resolve to the winner's movement id.
package postmovement
