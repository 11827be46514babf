// Package config provides connection factories for the ledger server.
//
// It opens Postgres connections with the three supported drivers (pgx.Pool, sql.DB via lib/pq,
// sqlx.DB), opens SQLite files via go-sqlite3, and sets up the OpenTelemetry providers.
// All factories return errors instead of exiting so that the caller decides how to fail.
package config
