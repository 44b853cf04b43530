package food

import (
	"context"

	domain "unisp/internal/domain/food"
)

// Store persists food distribution rows.
type Store interface {
	Save(ctx context.Context, value domain.Item) error
	List(ctx context.Context) ([]domain.Item, error)
}
