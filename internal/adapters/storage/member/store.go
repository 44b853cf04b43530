package member

import (
	"context"
	"time"

	domain "unisp/internal/domain/member"
)

// Store persists Member state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	GetByEmail(ctx context.Context, email string) (domain.Member, error)
	GetByScanCode(ctx context.Context, code string) (domain.Member, error)
	GetByFiscalCode(ctx context.Context, fiscalCode string) (domain.Member, error)
	Save(ctx context.Context, value domain.Member) error
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
	ListByStatus(ctx context.Context, status string) ([]domain.Member, error)
	ListAll(ctx context.Context) ([]domain.Member, error)
	ListUnnotified(ctx context.Context, limit int) ([]domain.Member, error)
	SetMailSent(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status string) error
	UpdateScanAuthorization(ctx context.Context, id string, active bool, expiresAt time.Time) error
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Role   string
	Status string
	Search string
	Limit  int
	Offset int
}
