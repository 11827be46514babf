package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/contacorrente/ledger/ledger"
	"github.com/contacorrente/ledger/ledger/sqlengine/internal/adapters"
)

const (
	defaultAccountTableName     = "account"
	defaultMovementTableName    = "movement"
	defaultIdempotencyTableName = "idempotency"

	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"

	colID         = "id"
	colNumber     = "number"
	colHolderName = "holder_name"
	colActive     = "active"
	colAccountID  = "account_id"
	colCreatedAt  = "created_at"
	colDirection  = "direction"
	colAmount     = "amount"
	colRequestID  = "request_id"
	colMovementID = "movement_id"

	operationFindAccount    = "find_account"
	operationLookup         = "lookup"
	operationAppendMovement = "append_movement"
	operationRecord         = "record"
	operationMovementsOf    = "movements_of"
	operationTransaction    = "transaction"
	operationSeedAccounts   = "seed_accounts"
	operationMigrate        = "migrate"

	logMsgBuildQueryFailed     = "failed to build query"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgDBExecFailed         = "database statement execution failed"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgRowsAffectedFailed   = "failed to get rows affected count"
	logMsgBeginTxFailed        = "failed to begin transaction"
	logMsgCommitFailed         = "failed to commit transaction"
	logMsgRollbackFailed       = "failed to roll back transaction"
	logMsgAccountFound         = "account found"
	logMsgAccountMissing       = "account not found"
	logMsgMovementAppended     = "movement appended"
	logMsgIdempotencyRecorded  = "idempotency key recorded"
	logMsgIdempotencyConflict  = "idempotency conflict detected"
	logMsgMovementsLoaded      = "movements loaded"
	logMsgTransactionRollback  = "transaction rolled back"
	logMsgTransactionCommitted = "transaction committed"
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "ledgerstore operation: "

	logAttrError       = "error"
	logAttrQuery       = "query"
	logAttrDurationMS  = "duration_ms"
	logAttrAccountID   = "account_id"
	logAttrMovementID  = "movement_id"
	logAttrRequestID   = "request_id"
	logAttrRowCount    = "row_count"
	logAttrConsistency = "consistency"
)

type txContextKey struct{}

// Store is the relational ledger store. The zero value is not usable, use one of the constructors.
type Store struct {
	db                   adapters.DBAdapter
	dialect              goqu.DialectWrapper
	dialectName          string
	accountTableName     string
	movementTableName    string
	idempotencyTableName string
	logger               Logger
	contextualLogger     ContextualLogger
	metricsCollector     MetricsCollector
	tracingCollector     TracingCollector
}

// NewStoreFromPGXPool creates a new Store on Postgres using a pgx Pool.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), dialectPostgres, options...)
}

// NewStoreFromPGXPoolWithReplica creates a new Store on Postgres with a primary pool and a read replica.
// Reads made with ledger.WithEventualConsistency are served by the replica.
func NewStoreFromPGXPoolWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (Store, error) {
	if primary == nil || replica == nil {
		return Store{}, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapterWithReplica(primary, replica), dialectPostgres, options...)
}

// NewStoreFromSQLDB creates a new Store on Postgres using a sql.DB opened with the lib/pq driver.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), dialectPostgres, options...)
}

// NewStoreFromSQLX creates a new Store on Postgres using a sqlx.DB.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), dialectPostgres, options...)
}

// NewStoreFromSQLite creates a new Store on SQLite using a sql.DB opened with the go-sqlite3 driver.
// SQLite allows one writer at a time, configure the pool with a single connection.
func NewStoreFromSQLite(db *sql.DB, options ...Option) (Store, error) {
	if db == nil {
		return Store{}, ledger.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), dialectSQLite, options...)
}

func newStore(db adapters.DBAdapter, dialectName string, options ...Option) (Store, error) {
	s := Store{
		db:                   db,
		dialect:              goqu.Dialect(dialectName),
		dialectName:          dialectName,
		accountTableName:     defaultAccountTableName,
		movementTableName:    defaultMovementTableName,
		idempotencyTableName: defaultIdempotencyTableName,
	}

	for _, option := range options {
		if err := option(&s); err != nil {
			return Store{}, err
		}
	}

	return s, nil
}

// FindAccount reads an account from the registry. A missing account is reported as found == false, not as an error.
func (s Store) FindAccount(ctx context.Context, accountID ledger.AccountID) (ledger.Account, bool, error) {
	observer, ctx := s.observe(ctx, operationFindAccount)

	sqlQuery, _, toSQLErr := s.dialect.
		From(s.accountTableName).
		Select(colID, colNumber, colHolderName, colActive).
		Where(goqu.C(colID).Eq(accountID)).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		err := s.buildQueryFailed(ctx, toSQLErr)
		observer.finishError(err)
		return ledger.Account{}, false, err
	}

	rows, queryErr := s.query(ctx, sqlQuery, operationFindAccount)
	if queryErr != nil {
		observer.finishError(queryErr)
		return ledger.Account{}, false, queryErr
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		if err := s.rowsErr(ctx, rows); err != nil {
			observer.finishError(err)
			return ledger.Account{}, false, err
		}

		s.logOperation(ctx, logMsgAccountMissing, logAttrAccountID, accountID)
		observer.finishSuccess(map[string]string{spanAttrFound: "false"})

		return ledger.Account{}, false, nil
	}

	var account ledger.Account
	var number int64

	if scanErr := rows.Scan(&account.ID, &number, &account.HolderName, &account.Active); scanErr != nil {
		err := s.scanFailed(ctx, scanErr)
		observer.finishError(err)
		return ledger.Account{}, false, err
	}
	account.Number = int(number)

	s.logOperation(ctx, logMsgAccountFound,
		logAttrAccountID, accountID,
		logAttrConsistency, ledger.GetConsistencyLevel(ctx).String())
	observer.finishSuccess(map[string]string{spanAttrFound: "true"})

	return account, true, nil
}

// Lookup returns the movement id previously recorded for a request id, if any.
func (s Store) Lookup(ctx context.Context, requestID ledger.RequestID) (ledger.MovementID, bool, error) {
	observer, ctx := s.observe(ctx, operationLookup)

	movementID, found, err := s.lookup(ctx, requestID)
	if err != nil {
		observer.finishError(err)
		return "", false, err
	}

	observer.finishSuccess(map[string]string{spanAttrFound: boolString(found)})

	return movementID, found, nil
}

func (s Store) lookup(ctx context.Context, requestID ledger.RequestID) (ledger.MovementID, bool, error) {
	sqlQuery, _, toSQLErr := s.dialect.
		From(s.idempotencyTableName).
		Select(colMovementID).
		Where(goqu.C(colRequestID).Eq(requestID)).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		return "", false, s.buildQueryFailed(ctx, toSQLErr)
	}

	rows, queryErr := s.query(ctx, sqlQuery, operationLookup)
	if queryErr != nil {
		return "", false, queryErr
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		if err := s.rowsErr(ctx, rows); err != nil {
			return "", false, err
		}

		return "", false, nil
	}

	var movementID string
	if scanErr := rows.Scan(&movementID); scanErr != nil {
		return "", false, s.scanFailed(ctx, scanErr)
	}

	return movementID, true, nil
}

// AppendMovement durably inserts a movement and returns its id.
// Called with a context from InTransaction, the insert becomes durable with the commit.
func (s Store) AppendMovement(ctx context.Context, movement ledger.Movement) (ledger.MovementID, error) {
	observer, ctx := s.observe(ctx, operationAppendMovement)

	sqlQuery, _, toSQLErr := s.dialect.
		Insert(s.movementTableName).
		Rows(goqu.Record{
			colID:        movement.ID,
			colAccountID: movement.AccountID,
			colCreatedAt: movement.CreatedAt.UTC().Format(timestampLayout),
			colDirection: movement.Direction.String(),
			colAmount:    movement.Amount.String(),
		}).
		ToSQL()
	if toSQLErr != nil {
		err := s.buildQueryFailed(ctx, toSQLErr)
		observer.finishError(err)
		return "", err
	}

	if _, execErr := s.exec(ctx, sqlQuery, operationAppendMovement); execErr != nil {
		observer.finishError(execErr)
		return "", execErr
	}

	s.logOperation(ctx, logMsgMovementAppended,
		logAttrMovementID, movement.ID,
		logAttrAccountID, movement.AccountID)
	observer.finishSuccess(nil)

	return movement.ID, nil
}

// Record maps a request id to a movement id. Recording the same pair again is a no-op.
// If the request id is already mapped to a different movement, it fails with ledger.ErrIdempotencyConflict
// and leaves the existing mapping untouched.
func (s Store) Record(ctx context.Context, requestID ledger.RequestID, movementID ledger.MovementID) error {
	observer, ctx := s.observe(ctx, operationRecord)

	sqlQuery, _, toSQLErr := s.dialect.
		Insert(s.idempotencyTableName).
		Rows(goqu.Record{
			colRequestID:  requestID,
			colMovementID: movementID,
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if toSQLErr != nil {
		err := s.buildQueryFailed(ctx, toSQLErr)
		observer.finishError(err)
		return err
	}

	rowsAffected, execErr := s.exec(ctx, sqlQuery, operationRecord)
	if execErr != nil {
		observer.finishError(execErr)
		return execErr
	}

	if rowsAffected == 0 {
		existing, found, lookupErr := s.lookup(ctx, requestID)
		if lookupErr != nil {
			observer.finishError(lookupErr)
			return lookupErr
		}

		if !found || existing != movementID {
			s.logOperation(ctx, logMsgIdempotencyConflict,
				logAttrRequestID, requestID,
				logAttrMovementID, movementID)

			observer.finishError(ledger.ErrIdempotencyConflict)

			return ledger.ErrIdempotencyConflict
		}
	}

	s.logOperation(ctx, logMsgIdempotencyRecorded,
		logAttrRequestID, requestID,
		logAttrMovementID, movementID)
	observer.finishSuccess(nil)

	return nil
}

// MovementsOf returns all movements of an account in creation order.
func (s Store) MovementsOf(ctx context.Context, accountID ledger.AccountID) (ledger.Movements, error) {
	observer, ctx := s.observe(ctx, operationMovementsOf)

	sqlQuery, _, toSQLErr := s.dialect.
		From(s.movementTableName).
		Select(colID, colAccountID, colCreatedAt, colDirection, colAmount).
		Where(goqu.C(colAccountID).Eq(accountID)).
		Order(goqu.I(colCreatedAt).Asc(), goqu.I(colID).Asc()).
		ToSQL()
	if toSQLErr != nil {
		err := s.buildQueryFailed(ctx, toSQLErr)
		observer.finishError(err)
		return nil, err
	}

	rows, queryErr := s.query(ctx, sqlQuery, operationMovementsOf)
	if queryErr != nil {
		observer.finishError(queryErr)
		return nil, queryErr
	}
	defer s.closeRows(ctx, rows)

	movements := make(ledger.Movements, 0)

	for rows.Next() {
		var (
			movement  ledger.Movement
			createdAt scannedTime
			direction string
		)

		if scanErr := rows.Scan(&movement.ID, &movement.AccountID, &createdAt, &direction, &movement.Amount); scanErr != nil {
			err := s.scanFailed(ctx, scanErr)
			observer.finishError(err)
			return nil, err
		}

		movement.CreatedAt = createdAt.Time
		movement.Direction = ledger.Direction(direction)
		movements = append(movements, movement)
	}

	if err := s.rowsErr(ctx, rows); err != nil {
		observer.finishError(err)
		return nil, err
	}

	s.logOperation(ctx, logMsgMovementsLoaded,
		logAttrAccountID, accountID,
		logAttrRowCount, len(movements),
		logAttrConsistency, ledger.GetConsistencyLevel(ctx).String())
	s.recordValue(ctx, metricMovementsRead, operationMovementsOf, float64(len(movements)))
	observer.finishSuccess(map[string]string{spanAttrRowCount: intString(len(movements))})

	return movements, nil
}

// InTransaction runs fn inside one database transaction. Store calls made with the context
// passed to fn take part in the transaction. The transaction commits when fn returns nil and
// rolls back otherwise, in which case fn's error is returned unchanged.
func (s Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(adapters.DBTx); ok {
		return ledger.ErrNestedTransaction
	}

	observer, ctx := s.observe(ctx, operationTransaction)

	tx, beginErr := s.db.BeginTx(ctx)
	if beginErr != nil {
		s.logError(ctx, logMsgBeginTxFailed, beginErr)
		err := errors.Join(ledger.ErrStoreUnavailable, beginErr)
		observer.finishError(err)
		return err
	}

	// rollback and commit must not be skipped because the caller went away
	finishCtx := context.WithoutCancel(ctx)

	if fnErr := fn(context.WithValue(ctx, txContextKey{}, tx)); fnErr != nil {
		if rollbackErr := tx.Rollback(finishCtx); rollbackErr != nil {
			s.logWarn(ctx, logMsgRollbackFailed, rollbackErr)
		}

		s.logOperation(ctx, logMsgTransactionRollback, logAttrError, fnErr.Error())
		observer.finishError(fnErr)

		return fnErr
	}

	if commitErr := tx.Commit(finishCtx); commitErr != nil {
		if rollbackErr := tx.Rollback(finishCtx); rollbackErr != nil {
			s.logWarn(ctx, logMsgRollbackFailed, rollbackErr)
		}

		s.logError(ctx, logMsgCommitFailed, commitErr)
		err := s.classifyDriverError(commitErr)
		observer.finishError(err)

		return err
	}

	s.logOperation(ctx, logMsgTransactionCommitted)
	observer.finishSuccess(nil)

	return nil
}

// SeedAccounts inserts registry entries that do not exist yet. Existing accounts are left unchanged.
func (s Store) SeedAccounts(ctx context.Context, accounts ...ledger.Account) error {
	observer, ctx := s.observe(ctx, operationSeedAccounts)

	for _, account := range accounts {
		sqlQuery, _, toSQLErr := s.dialect.
			Insert(s.accountTableName).
			Rows(goqu.Record{
				colID:         account.ID,
				colNumber:     account.Number,
				colHolderName: account.HolderName,
				colActive:     account.Active,
			}).
			OnConflict(goqu.DoNothing()).
			ToSQL()
		if toSQLErr != nil {
			err := s.buildQueryFailed(ctx, toSQLErr)
			observer.finishError(err)
			return err
		}

		if _, execErr := s.exec(ctx, sqlQuery, operationSeedAccounts); execErr != nil {
			observer.finishError(execErr)
			return execErr
		}
	}

	observer.finishSuccess(map[string]string{spanAttrRowCount: intString(len(accounts))})

	return nil
}

/*** Execution helpers ***/

// executor returns the transaction carried by ctx, or the adapter itself.
func (s Store) executor(ctx context.Context) adapters.DBExecutor {
	if tx, ok := ctx.Value(txContextKey{}).(adapters.DBTx); ok {
		return tx
	}

	return s.db
}

func (s Store) query(ctx context.Context, sqlQuery string, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := s.executor(ctx).Query(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, s.classifyDriverError(queryErr)
	}

	return rows, nil
}

func (s Store) exec(ctx context.Context, sqlQuery string, action string) (int64, error) {
	start := time.Now()
	result, execErr := s.executor(ctx).Exec(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if execErr != nil {
		s.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		return 0, s.classifyDriverError(execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		return 0, errors.Join(ledger.ErrStoreUnavailable, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// classifyDriverError maps unique violations to ErrIdempotencyConflict and everything else to ErrStoreUnavailable.
func (s Store) classifyDriverError(err error) error {
	if adapters.IsUniqueViolation(err) {
		return errors.Join(ledger.ErrIdempotencyConflict, err)
	}

	return errors.Join(ledger.ErrStoreUnavailable, err)
}

func (s Store) buildQueryFailed(ctx context.Context, toSQLErr error) error {
	s.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
	return errors.Join(ledger.ErrBuildingQueryFailed, toSQLErr)
}

func (s Store) scanFailed(ctx context.Context, scanErr error) error {
	s.logError(ctx, logMsgScanRowFailed, scanErr)
	return errors.Join(ledger.ErrScanningDBRowFailed, scanErr)
}

func (s Store) rowsErr(ctx context.Context, rows adapters.DBRows) error {
	if err := rows.Err(); err != nil {
		s.logError(ctx, logMsgDBQueryFailed, err)
		return errors.Join(ledger.ErrStoreUnavailable, err)
	}

	return nil
}

// closeRows safely closes database rows and logs any errors.
func (s Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}
