// Package sqlengine provides the relational implementation of the ledger store.
//
// A Store implements every collaborator contract the ledger handlers need: account lookup,
// movement writer, idempotency ledger, the movement source for the balance projection, and
// a transaction boundary. It runs on Postgres (through pgx.Pool, database/sql with lib/pq, or
// sqlx) and on SQLite (database/sql with go-sqlite3).
//
// Queries are built with goqu in the dialect matching the connection. The idempotency table
// carries a primary key on the request id, which makes the store the arbiter for concurrent
// requests with the same id: the losing transaction observes ErrIdempotencyConflict and is
// rolled back together with its movement.
//
// Typical setup:
//
//	pool, _ := pgxpool.NewWithConfig(ctx, cfg)
//	store, err := sqlengine.NewStoreFromPGXPool(pool, sqlengine.WithLogger(slog.Default()))
//	if err != nil {
//		return err
//	}
//	if err := store.Migrate(ctx); err != nil {
//		return err
//	}
package sqlengine
