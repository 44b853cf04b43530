package food

import (
	"context"
	"database/sql"
	"time"

	"unisp/internal/adapters/storage"
	domain "unisp/internal/domain/food"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new food store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts a food distribution row.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Item) error {
	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO food_item (id, product, quantity, unit, distributed_on, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entity.ID,
		entity.Product,
		entity.Quantity,
		nullable(entity.Unit),
		nullable(entity.DistributedOn),
		createdAt.Format(time.RFC3339Nano),
	)
	return err
}

// List returns every food distribution row, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, product, quantity, unit, distributed_on, created_at FROM food_item ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Item
	for rows.Next() {
		var entity domain.Item
		var unit, distributedOn sql.NullString
		var createdAt string
		if err := rows.Scan(&entity.ID, &entity.Product, &entity.Quantity, &unit, &distributedOn, &createdAt); err != nil {
			return nil, err
		}
		entity.Unit = unit.String
		entity.DistributedOn = distributedOn.String
		if t, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			entity.CreatedAt = t.Local()
		}
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
