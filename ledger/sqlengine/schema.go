package sqlengine

import (
	"context"
	"fmt"
)

// goqu builds DML only, the schema statements are templated here.
// Table names are validated by the options before they reach these templates.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY,
	number      INTEGER NOT NULL DEFAULT 0,
	holder_name TEXT NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS %[2]s (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES %[1]s (id),
	created_at TIMESTAMPTZ NOT NULL,
	direction  CHAR(1) NOT NULL CHECK (direction IN ('C', 'D')),
	amount     NUMERIC NOT NULL CHECK (amount > 0)
);

CREATE INDEX IF NOT EXISTS %[2]s_account_id_idx ON %[2]s (account_id, created_at);

CREATE TABLE IF NOT EXISTS %[3]s (
	request_id  TEXT PRIMARY KEY,
	movement_id TEXT NOT NULL REFERENCES %[2]s (id)
);
`

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY,
	number      INTEGER NOT NULL DEFAULT 0,
	holder_name TEXT NOT NULL,
	active      INTEGER NOT NULL DEFAULT 1
)`,
	`CREATE TABLE IF NOT EXISTS %[2]s (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES %[1]s (id),
	created_at TEXT NOT NULL,
	direction  TEXT NOT NULL CHECK (direction IN ('C', 'D')),
	amount     TEXT NOT NULL CHECK (CAST(amount AS REAL) > 0)
)`,
	`CREATE INDEX IF NOT EXISTS %[2]s_account_id_idx ON %[2]s (account_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS %[3]s (
	request_id  TEXT PRIMARY KEY,
	movement_id TEXT NOT NULL REFERENCES %[2]s (id)
)`,
}

// Migrate creates the account, movement and idempotency tables if they do not exist.
func (s Store) Migrate(ctx context.Context) error {
	observer, ctx := s.observe(ctx, operationMigrate)

	statements := []string{postgresSchema}
	if s.dialectName == dialectSQLite {
		statements = sqliteSchema
	}

	for _, statement := range statements {
		ddl := fmt.Sprintf(statement, s.accountTableName, s.movementTableName, s.idempotencyTableName)

		if _, err := s.exec(ctx, ddl, operationMigrate); err != nil {
			observer.finishError(err)
			return err
		}
	}

	observer.finishSuccess(nil)

	return nil
}
