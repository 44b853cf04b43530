package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"unisp/internal/domain/audit"
	"unisp/internal/domain/member"
)

// ErrUnknownField is returned when an update names a field that cannot be
// edited through the admin screen.
var ErrUnknownField = errors.New("unknown member field")

// UpdateMemberStore defines the member store interface needed for admin
// field updates.
type UpdateMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	Save(ctx context.Context, value member.Member) error
}

// UpdateMemberInput carries one field change for one member.
type UpdateMemberInput struct {
	MemberID string
	Field    string
	Value    string
}

// UpdateMemberDeps holds dependencies for UpdateMember.
type UpdateMemberDeps struct {
	MemberStore UpdateMemberStore
	AuditStore  AuditLog
	Operator    Operator
}

// ExecuteUpdateMember applies a single-field edit from the member admin
// screen. Every change is validated against the domain rules and audited
// with the field name and new value.
// PRE: MemberID refers to an existing member
// POST: the member record holds the new value, or nothing changed
func ExecuteUpdateMember(ctx context.Context, input UpdateMemberInput, deps UpdateMemberDeps) (member.Member, error) {
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return member.Member{}, err
	}

	value := strings.TrimSpace(input.Value)
	switch input.Field {
	case "first_name":
		m.FirstName = value
	case "last_name":
		m.LastName = value
	case "email":
		m.Email = strings.ToLower(value)
	case "phone":
		m.Phone = cleanPhone(value)
	case "role":
		m.Role = value
	case "status":
		m.Status = value
	case "course_name":
		m.CourseName = value
	case "course_year":
		m.CourseYear = value
	case "student_number":
		m.StudentNumber = value
	default:
		return member.Member{}, ErrUnknownField
	}

	if err := m.Validate(); err != nil {
		return member.Member{}, err
	}
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return member.Member{}, err
	}

	appendAudit(ctx, deps.AuditStore, deps.Operator, audit.ActionUpdateMember, m,
		fmt.Sprintf("set %s to %q", input.Field, value))
	return m, nil
}
