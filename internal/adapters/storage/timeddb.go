package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

var slowQueryMs float64
var slowQueryOnce sync.Once

// slowQueryThreshold returns the slow-query threshold in milliseconds.
func slowQueryThreshold() float64 {
	slowQueryOnce.Do(func() {
		ms := DefaultSlowQueryMs
		if v := os.Getenv("UNISP_SLOW_QUERY_MS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				ms = n
			}
		}
		slowQueryMs = float64(ms)
	})
	return slowQueryMs
}

// TimedDB wraps a *sql.DB and logs queries that exceed the slow-query
// threshold. Satisfies the SQLDB interface so it can be passed to any
// store constructor.
type TimedDB struct {
	db *sql.DB
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps a *sql.DB with slow-query logging.
// PRE: db is a valid database connection
func NewTimedDB(db *sql.DB) *TimedDB {
	return &TimedDB{db: db}
}

func (t *TimedDB) observe(query string, start time.Time) {
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	if elapsed >= slowQueryThreshold() {
		slog.Warn("slow_query", "query", query, "elapsed_ms", elapsed)
	}
}

// ExecContext runs a statement and records its duration.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	defer t.observe(query, start)
	return t.db.ExecContext(ctx, query, args...)
}

// QueryContext runs a query and records its duration.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	defer t.observe(query, start)
	return t.db.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query and records its duration.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	defer t.observe(query, start)
	return t.db.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction. Statement timing inside the transaction is
// not instrumented; the transaction boundary itself is what matters here.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return t.db.BeginTx(ctx, opts)
}
