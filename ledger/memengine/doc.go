// Package memengine provides an in-memory ledger store with the same contract as the sqlengine store.
//
// It serves tests and local runs without a database. Transactions are serialized: one writer at a
// time stages its changes and publishes them atomically on commit.
package memengine
