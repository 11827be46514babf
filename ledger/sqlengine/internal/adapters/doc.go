// Package adapters provide database adapter implementations for the SQL ledger store.
//
// The adapters hide the differences between pgx.Pool, sql.DB (lib/pq or go-sqlite3) and
// sqlx.DB behind the DBAdapter interface, including transactions and the detection of
// unique constraint violations.
package adapters
