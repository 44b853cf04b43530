package passage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"unisp/internal/adapters/storage"
	domain "unisp/internal/domain/passage"
)

// createRetries bounds retries when two concurrent inserts race for the
// same daily sequence number.
const createRetries = 3

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new passage store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a passage for memberID at now with the next daily number.
// The count and insert run in one transaction; the UNIQUE(member_id, day)
// index is the authoritative duplicate guard and maps to ErrDuplicateDay,
// while a collision on UNIQUE(day, daily_number) from a concurrent insert
// is retried with a freshly computed number.
// PRE: memberID is non-empty
// POST: Exactly one passage per member per day; daily numbers are gapless
func (s *SQLiteStore) Create(ctx context.Context, memberID string, now time.Time) (domain.Passage, error) {
	day := domain.DayOf(now)

	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		p, err := s.tryCreate(ctx, memberID, now, day)
		if err == nil {
			return p, nil
		}
		if isUniqueViolation(err, "passage.member_id") {
			return domain.Passage{}, domain.ErrDuplicateDay
		}
		if isUniqueViolation(err, "passage.day") {
			// Lost the race for this sequence number; recompute and retry.
			lastErr = err
			continue
		}
		return domain.Passage{}, err
	}
	return domain.Passage{}, fmt.Errorf("failed to assign daily number after %d attempts: %w", createRetries, lastErr)
}

func (s *SQLiteStore) tryCreate(ctx context.Context, memberID string, now time.Time, day string) (domain.Passage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Passage{}, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM passage WHERE day = ?", day).Scan(&count); err != nil {
		return domain.Passage{}, err
	}

	entity := domain.Passage{
		ID:          uuid.New().String(),
		MemberID:    memberID,
		ScannedAt:   now,
		Day:         day,
		DailyNumber: count + 1,
	}
	if err := entity.Validate(); err != nil {
		return domain.Passage{}, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO passage (id, member_id, scanned_at, day, daily_number) VALUES (?, ?, ?, ?, ?)",
		entity.ID,
		entity.MemberID,
		entity.ScannedAt.Format(time.RFC3339Nano),
		entity.Day,
		entity.DailyNumber,
	)
	if err != nil {
		return domain.Passage{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Passage{}, err
	}
	return entity, nil
}

// GetByMemberAndDay retrieves the member's passage for a given day.
// POST: Returns the passage or domain.ErrNotFound
func (s *SQLiteStore) GetByMemberAndDay(ctx context.Context, memberID string, day string) (domain.Passage, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, member_id, scanned_at, day, daily_number FROM passage WHERE member_id = ? AND day = ?",
		memberID, day)
	return scanPassage(row)
}

// CountByDay returns how many passages were recorded on a day.
func (s *SQLiteStore) CountByDay(ctx context.Context, day string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM passage WHERE day = ?", day).Scan(&count)
	return count, err
}

// ListByDay returns a day's passages, newest first.
func (s *SQLiteStore) ListByDay(ctx context.Context, day string) ([]domain.Passage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, member_id, scanned_at, day, daily_number FROM passage WHERE day = ? ORDER BY daily_number DESC",
		day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPassages(rows)
}

// ListAll returns every passage, oldest first. Used by the escalation
// policy and the statistics projections.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Passage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, member_id, scanned_at, day, daily_number FROM passage ORDER BY scanned_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPassages(rows)
}

// DistinctDays returns the number of distinct activity days on record.
func (s *SQLiteStore) DistinctDays(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT day) FROM passage").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassage(row rowScanner) (domain.Passage, error) {
	var entity domain.Passage
	var scannedAt string
	err := row.Scan(&entity.ID, &entity.MemberID, &scannedAt, &entity.Day, &entity.DailyNumber)
	if err == sql.ErrNoRows {
		return domain.Passage{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Passage{}, err
	}
	t, parseErr := time.Parse(time.RFC3339Nano, scannedAt)
	if parseErr != nil {
		return domain.Passage{}, fmt.Errorf("failed to parse scanned_at: %w", parseErr)
	}
	entity.ScannedAt = t.Local()
	return entity, nil
}

func collectPassages(rows *sql.Rows) ([]domain.Passage, error) {
	var results []domain.Passage
	for rows.Next() {
		entity, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// an index whose first column matches the given qualified column name.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
