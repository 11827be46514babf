package storewrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/contacorrente/ledger/app/shared/shell/config"
	"github.com/contacorrente/ledger/ledger/sqlengine"
)

// Adapter type constants
const (
	typeSQLite  = "sqlite"
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"

	envAdapterType = "ADAPTER_TYPE"
	envPostgresDSN = "LEDGER_TEST_POSTGRES_DSN"
)

// Wrapper abstracts over the different driver setups.
type Wrapper interface {
	GetStore() sqlengine.Store
	Close()
}

// SQLiteWrapper wraps a SQLite file based store.
type SQLiteWrapper struct {
	db    *sql.DB
	store sqlengine.Store
}

func (w *SQLiteWrapper) GetStore() sqlengine.Store {
	return w.store
}

func (w *SQLiteWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// PGXPoolWrapper wraps pgxpool-based testing.
type PGXPoolWrapper struct {
	pool   *pgxpool.Pool
	store  sqlengine.Store
	tables tableNames
}

func (w *PGXPoolWrapper) GetStore() sqlengine.Store {
	return w.store
}

func (w *PGXPoolWrapper) Close() {
	_, _ = w.pool.Exec(context.Background(), w.tables.dropStatement())
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing.
type SQLDBWrapper struct {
	db     *sql.DB
	store  sqlengine.Store
	tables tableNames
}

func (w *SQLDBWrapper) GetStore() sqlengine.Store {
	return w.store
}

func (w *SQLDBWrapper) Close() {
	_, _ = w.db.Exec(w.tables.dropStatement())
	_ = w.db.Close()
}

// SQLXWrapper wraps sqlx.DB-based testing.
type SQLXWrapper struct {
	db     *sqlx.DB
	store  sqlengine.Store
	tables tableNames
}

func (w *SQLXWrapper) GetStore() sqlengine.Store {
	return w.store
}

func (w *SQLXWrapper) Close() {
	_, _ = w.db.Exec(w.tables.dropStatement())
	_ = w.db.Close()
}

type tableNames struct {
	account     string
	movement    string
	idempotency string
}

func newTableNames() tableNames {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	return tableNames{
		account:     "account_" + suffix,
		movement:    "movement_" + suffix,
		idempotency: "idempotency_" + suffix,
	}
}

func (n tableNames) options() []sqlengine.Option {
	return []sqlengine.Option{
		sqlengine.WithAccountTableName(n.account),
		sqlengine.WithMovementTableName(n.movement),
		sqlengine.WithIdempotencyTableName(n.idempotency),
	}
}

func (n tableNames) dropStatement() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s, %s, %s", n.idempotency, n.movement, n.account)
}

// CreateWrapperWithTestConfig creates a migrated store for the adapter type selected by the environment.
// The wrapper is closed automatically when the test ends.
func CreateWrapperWithTestConfig(t testing.TB, options ...sqlengine.Option) Wrapper {
	t.Helper()

	ctx := context.Background()
	wrapper := createWrapper(t, ctx, options...)
	t.Cleanup(wrapper.Close)

	require.NoError(t, wrapper.GetStore().Migrate(ctx), "error migrating the test schema")

	return wrapper
}

// AdapterType returns the adapter type selected by the environment.
func AdapterType() string {
	adapterType := strings.ToLower(os.Getenv(envAdapterType))
	if adapterType == "" {
		return typeSQLite
	}

	return adapterType
}

func createWrapper(t testing.TB, ctx context.Context, options ...sqlengine.Option) Wrapper {
	adapterType := AdapterType()

	if adapterType == typeSQLite {
		db, err := config.SQLiteDB(ctx, filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err, "error opening sqlite in test setup")

		store, err := sqlengine.NewStoreFromSQLite(db, options...)
		require.NoError(t, err, "error creating store")

		return &SQLiteWrapper{db: db, store: store}
	}

	dsn := os.Getenv(envPostgresDSN)
	if dsn == "" {
		t.Skipf("%s is not set, skipping %s test", envPostgresDSN, adapterType)
	}

	tables := newTableNames()
	options = append(tables.options(), options...)

	switch adapterType {
	case typePGXPool:
		pool, err := config.NewPGXPool(ctx, dsn)
		require.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := sqlengine.NewStoreFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating store")

		return &PGXPoolWrapper{pool: pool, store: store, tables: tables}

	case typeSQLDB:
		db, err := config.PostgresSQLDB(ctx, dsn)
		require.NoError(t, err, "error connecting to DB in test setup")

		store, err := sqlengine.NewStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating store")

		return &SQLDBWrapper{db: db, store: store, tables: tables}

	case typeSQLXDB:
		db, err := config.PostgresSQLX(ctx, dsn)
		require.NoError(t, err, "error connecting to DB in test setup")

		store, err := sqlengine.NewStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating store")

		return &SQLXWrapper{db: db, store: store, tables: tables}

	default:
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}
}
