package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the ingestion tables. The unique constraints on
// people, phones and people_phones carry the idempotence invariants for
// identity resolution; callers rely on them instead of check-then-insert.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	company_id TEXT
);

CREATE TABLE IF NOT EXISTS imports (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_type TEXT NOT NULL,
	total_records INTEGER NOT NULL,
	valid_records INTEGER NOT NULL DEFAULT 0,
	invalid_records INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_log JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_imports_status_created ON imports(status, created_at);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	company_id TEXT NOT NULL,
	import_id TEXT NOT NULL REFERENCES imports(id),
	raw_data JSONB NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_contacts_import_status ON contacts(import_id, status);

CREATE TABLE IF NOT EXISTS people (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	cpf TEXT NOT NULL,
	name TEXT,
	email TEXT,
	birth_date TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (company_id, cpf)
);

CREATE TABLE IF NOT EXISTS phones (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	UNIQUE (company_id, phone_number)
);

CREATE TABLE IF NOT EXISTS people_phones (
	person_id TEXT NOT NULL REFERENCES people(id),
	phone_id TEXT NOT NULL REFERENCES phones(id),
	is_primary BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (person_id, phone_id)
);

CREATE TABLE IF NOT EXISTS debts (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	person_id TEXT NOT NULL REFERENCES people(id),
	contact_id TEXT NOT NULL UNIQUE,
	contract_number TEXT,
	original_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	current_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	due_date TIMESTAMPTZ,
	status TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_debts_person ON debts(person_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
