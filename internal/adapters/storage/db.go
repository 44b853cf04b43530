package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *sql.Tx-free wrappers satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Compile-time check that *sql.DB satisfies SQLDB.
var _ SQLDB = (*sql.DB)(nil)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS member (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT,
		phone TEXT,
		fiscal_code TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		scan_code TEXT NOT NULL UNIQUE,
		auth_scan_active INTEGER NOT NULL DEFAULT 0,
		auth_scan_expires_at TEXT,
		mail_sent INTEGER NOT NULL DEFAULT 0,
		password_hash TEXT NOT NULL DEFAULT '',
		is_student TEXT,
		student_number TEXT,
		course_name TEXT,
		course_year TEXT,
		enrollment_cert_url TEXT,
		residence_permit_url TEXT,
		id_document_url TEXT,
		isee_url TEXT,
		privacy_consent TEXT,
		source_timestamp TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS passage (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		scanned_at TEXT NOT NULL,
		day TEXT NOT NULL,
		daily_number INTEGER NOT NULL,
		FOREIGN KEY (member_id) REFERENCES member(id),
		UNIQUE (member_id, day),
		UNIQUE (day, daily_number)
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		operator_id TEXT NOT NULL,
		operator_name TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		target_id TEXT,
		target_name TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS food_item (
		id TEXT PRIMARY KEY,
		product TEXT NOT NULL,
		quantity REAL NOT NULL DEFAULT 0,
		unit TEXT,
		distributed_on TEXT,
		created_at TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
