package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/contacorrente/ledger/app/features/command/postmovement"
	"github.com/contacorrente/ledger/app/features/query/accountbalance"
	"github.com/contacorrente/ledger/app/shared/shell/config"
	"github.com/contacorrente/ledger/ledger"
	"github.com/contacorrente/ledger/ledger/memengine"
	"github.com/contacorrente/ledger/ledger/sqlengine"
)

// ledgerStore is what the server needs from a storage engine.
type ledgerStore interface {
	postmovement.LedgerStore
	accountbalance.LedgerStore
	SeedAccounts(ctx context.Context, accounts ...ledger.Account) error
}

// openStore opens the configured engine. The returned close function releases its connections.
func openStore(ctx context.Context, cfg Config, logger *slog.Logger, options ...sqlengine.Option) (ledgerStore, func(), error) {
	switch cfg.Store {
	case storeMemory:
		logger.Warn("using the in-memory store, data is lost on shutdown")
		return memengine.NewStore(), func() {}, nil

	case storeSQLite:
		db, err := config.SQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromSQLite(db, options...)

		return prepareSQLStore(ctx, cfg, store, err, closeSQLDB(db))

	case storePGXPool:
		return openPGXPoolStore(ctx, cfg, options...)

	case storeSQLDB:
		db, err := config.PostgresSQLDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromSQLDB(db, options...)

		return prepareSQLStore(ctx, cfg, store, err, closeSQLDB(db))

	case storeSQLXDB:
		db, err := config.PostgresSQLX(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromSQLX(db, options...)

		return prepareSQLStore(ctx, cfg, store, err, func() { _ = db.Close() })

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
	}
}

func openPGXPoolStore(ctx context.Context, cfg Config, options ...sqlengine.Option) (ledgerStore, func(), error) {
	primary, err := config.NewPGXPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}

	if cfg.PostgresReplicaDSN == "" {
		store, storeErr := sqlengine.NewStoreFromPGXPool(primary, options...)

		return prepareSQLStore(ctx, cfg, store, storeErr, primary.Close)
	}

	replica, err := config.NewPGXPool(ctx, cfg.PostgresReplicaDSN)
	if err != nil {
		primary.Close()
		return nil, nil, err
	}

	closePools := func() {
		replica.Close()
		primary.Close()
	}

	store, err := sqlengine.NewStoreFromPGXPoolWithReplica(primary, replica, options...)

	return prepareSQLStore(ctx, cfg, store, err, closePools)
}

// prepareSQLStore runs the migration when asked and closes the connections on any failure.
func prepareSQLStore(
	ctx context.Context,
	cfg Config,
	store sqlengine.Store,
	storeErr error,
	closeFn func(),
) (ledgerStore, func(), error) {

	if storeErr != nil {
		closeFn()
		return nil, nil, fmt.Errorf("create store: %w", storeErr)
	}

	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("migrate store: %w", err)
		}
	}

	return store, closeFn, nil
}

func closeSQLDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
