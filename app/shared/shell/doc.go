// Package shell holds the infrastructure side of the ledger application: the contracts shared
// by command and query handlers, the retry loop for idempotency conflicts, handler results,
// and the metric, span and log helpers used by the observable wrappers.
//
// The pure decisions live in the feature packages; everything that talks to the store or to
// observability backends goes through this package.
package shell
