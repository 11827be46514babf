// Package oteladapters provides OpenTelemetry implementations of the ledger observability interfaces:
// a metrics collector, a tracing collector and two contextual loggers.
package oteladapters
