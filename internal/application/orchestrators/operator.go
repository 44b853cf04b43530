package orchestrators

import (
	"context"

	"unisp/internal/domain/audit"
)

// Operator identifies who triggered an orchestrator, for audit entries.
// A zero Operator is recorded as the system.
type Operator struct {
	ID   string
	Name string
}

func (o Operator) orSystem() Operator {
	if o.ID == "" {
		return Operator{ID: audit.SystemOperator, Name: audit.SystemOperator}
	}
	return o
}

// AuditLog defines the append-only audit interface orchestrators write to.
type AuditLog interface {
	Append(ctx context.Context, entry audit.Entry) error
}
