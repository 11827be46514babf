// Package storewrapper creates migrated sqlengine stores for tests.
//
// The driver is selected with the ADAPTER_TYPE environment variable:
//
//	sqlite   (default) a temporary SQLite file per test
//	pgx.pool Postgres via pgx
//	sql.db   Postgres via database/sql and lib/pq
//	sqlx.db  Postgres via sqlx
//
// The Postgres variants read the DSN from LEDGER_TEST_POSTGRES_DSN and skip the test when it is unset.
// Every Postgres wrapper uses its own set of tables, which are dropped when the test ends.
package storewrapper
