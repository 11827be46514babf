// Package helper provides test doubles and fixtures shared by the ledger tests.
//
// The spies capture log records, metrics and spans so tests can assert on the
// observability output of the store and the feature handlers.
package helper
