package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"unisp/internal/adapters/storage"
	domain "unisp/internal/domain/audit"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append inserts a new audit entry.
// PRE: entry has a valid ID and action
// POST: Entry is persisted; entries are never updated afterwards
func (s *SQLiteStore) Append(ctx context.Context, entry domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, action, operator_id, operator_name, details, target_id, target_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Action,
		entry.OperatorID,
		entry.OperatorName,
		entry.Details,
		nullable(entry.TargetID),
		nullable(entry.TargetName),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListByRange returns entries with from <= created_at < to, oldest first.
func (s *SQLiteStore) ListByRange(ctx context.Context, from, to time.Time) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, operator_id, operator_name, details, target_id, target_name, created_at
		 FROM audit_log WHERE created_at >= ? AND created_at < ? ORDER BY created_at`,
		from.Format(time.RFC3339Nano), to.Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Entry
	for rows.Next() {
		var entity domain.Entry
		var targetID, targetName sql.NullString
		var createdAt string
		if err := rows.Scan(
			&entity.ID,
			&entity.Action,
			&entity.OperatorID,
			&entity.OperatorName,
			&entity.Details,
			&targetID,
			&targetName,
			&createdAt,
		); err != nil {
			return nil, err
		}
		entity.TargetID = targetID.String
		entity.TargetName = targetName.String
		t, parseErr := time.Parse(time.RFC3339Nano, createdAt)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", parseErr)
		}
		entity.CreatedAt = t.Local()
		results = append(results, entity)
	}
	return results, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
