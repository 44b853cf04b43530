package passage

import (
	"context"
	"time"

	domain "unisp/internal/domain/passage"
)

// Store persists Passage state.
type Store interface {
	// Create inserts a new passage for the member at now, assigning the next
	// daily sequence number atomically. Returns domain.ErrDuplicateDay if the
	// member already has a passage on now's local calendar day.
	Create(ctx context.Context, memberID string, now time.Time) (domain.Passage, error)

	GetByMemberAndDay(ctx context.Context, memberID string, day string) (domain.Passage, error)
	CountByDay(ctx context.Context, day string) (int, error)
	ListByDay(ctx context.Context, day string) ([]domain.Passage, error)
	ListAll(ctx context.Context) ([]domain.Passage, error)
	DistinctDays(ctx context.Context) (int, error)
}
