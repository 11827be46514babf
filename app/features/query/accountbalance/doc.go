// Package accountbalance implements the balance query of an account.
//
// The balance is not stored: it is the fold of all committed movements of the account,
// credits minus debits, recomputed on every query.
package accountbalance
