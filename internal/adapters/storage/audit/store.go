package audit

import (
	"context"
	"time"

	domain "unisp/internal/domain/audit"
)

// Store persists audit log entries. The log is append-only: there is no
// update or delete operation.
type Store interface {
	Append(ctx context.Context, entry domain.Entry) error
	ListByRange(ctx context.Context, from, to time.Time) ([]domain.Entry, error)
}
