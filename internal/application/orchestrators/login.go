package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"unisp/internal/domain/audit"
	"unisp/internal/domain/member"
)

// ErrInvalidCredentials is returned for any login failure. The caller
// never learns whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginMemberStore defines the member store interface needed for login.
type LoginMemberStore interface {
	GetByEmail(ctx context.Context, email string) (member.Member, error)
}

// LoginInput carries the submitted credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	MemberStore LoginMemberStore
	AuditStore  AuditLog
}

// ExecuteLogin authenticates a member by email and password.
// PRE: deps.MemberStore is non-nil
// POST: returns the member on success; ErrInvalidCredentials on any
// failure, including unknown email, wrong password, missing credential
// and non-active status
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (member.Member, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return member.Member{}, ErrInvalidCredentials
	}

	m, err := deps.MemberStore.GetByEmail(ctx, email)
	if errors.Is(err, member.ErrNotFound) {
		slog.Info("login_event", "event", "unknown_email", "email", email)
		return member.Member{}, ErrInvalidCredentials
	}
	if err != nil {
		return member.Member{}, err
	}

	if err := m.CheckPassword(input.Password); err != nil {
		slog.Info("login_event", "event", "bad_password", "member_id", m.ID)
		return member.Member{}, ErrInvalidCredentials
	}
	if !m.IsActive() {
		slog.Info("login_event", "event", "inactive_member", "member_id", m.ID, "status", m.Status)
		return member.Member{}, ErrInvalidCredentials
	}

	slog.Info("login_event", "event", "logged_in", "member_id", m.ID, "role", m.Role)
	appendAudit(ctx, deps.AuditStore, Operator{ID: m.ID, Name: m.FullName()},
		audit.ActionLogin, m, "logged in")

	return m, nil
}
