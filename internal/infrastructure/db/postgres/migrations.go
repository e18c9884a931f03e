package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are idempotent and applied in order at startup.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "create_accounts",
		sql: `
CREATE TABLE IF NOT EXISTS accounts (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    roles         TEXT[] NOT NULL DEFAULT '{}',
    balance       NUMERIC(14,2) NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	},
	{
		name: "create_courses",
		sql: `
CREATE TABLE IF NOT EXISTS courses (
    id    TEXT PRIMARY KEY,
    code  VARCHAR(255) NOT NULL UNIQUE,
    title TEXT NOT NULL DEFAULT '',
    type  TEXT NOT NULL CHECK (type IN ('free', 'rent', 'buy')),
    cost  NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (cost >= 0)
)`,
	},
	{
		name: "create_transactions",
		sql: `
CREATE TABLE IF NOT EXISTS transactions (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts (id),
    course_id  TEXT REFERENCES courses (id),
    type       TEXT NOT NULL CHECK (type IN ('deposit', 'payment')),
    amount     NUMERIC(14,2) NOT NULL CHECK (amount > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expired_at TIMESTAMPTZ
)`,
	},
	{
		name: "index_transactions",
		sql: `
CREATE INDEX IF NOT EXISTS idx_transactions_account_created ON transactions (account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transactions_account_course ON transactions (account_id, course_id, expired_at DESC NULLS LAST);
CREATE INDEX IF NOT EXISTS idx_transactions_expired_at ON transactions (expired_at) WHERE expired_at IS NOT NULL`,
	},
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", m.name, err)
		}
	}
	return nil
}
