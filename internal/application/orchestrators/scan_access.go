package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"unisp/internal/domain/audit"
	"unisp/internal/domain/member"
)

// ScanAccessStore defines the member store interface needed for the
// scanner authorization window.
type ScanAccessStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	UpdateScanAuthorization(ctx context.Context, id string, active bool, expiresAt time.Time) error
}

// CanOperateScanner decides whether m may run the check-in scanner at now.
// Staff and admins always can; volunteers only inside an open authorization
// window; passive members never.
func CanOperateScanner(m member.Member, now time.Time) bool {
	if m.IsStaff() {
		return true
	}
	if m.Role == member.RoleVolunteer {
		return m.IsScannerAuthorized(now)
	}
	return false
}

// ScanAccessInput carries input for granting or revoking scanner access.
type ScanAccessInput struct {
	MemberID string
	Now      time.Time
}

// ScanAccessDeps holds dependencies for the grant and revoke orchestrators.
type ScanAccessDeps struct {
	MemberStore ScanAccessStore
	AuditStore  AuditLog
	Operator    Operator
}

// ExecuteGrantScanAccess opens a 48-hour scanner window for a volunteer.
// PRE: MemberID refers to an existing member
// POST: window is [now, now+48h); a re-grant resets the window rather than
// extending the previous one
func ExecuteGrantScanAccess(ctx context.Context, input ScanAccessInput, deps ScanAccessDeps) (member.Member, error) {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return member.Member{}, err
	}

	m.GrantScanAccess(now)
	if err := deps.MemberStore.UpdateScanAuthorization(ctx, m.ID, m.AuthScanActive, m.AuthScanExpiresAt); err != nil {
		return member.Member{}, err
	}

	slog.Info("scan_access_event", "event", "granted",
		"member_id", m.ID, "expires_at", m.AuthScanExpiresAt)
	appendAudit(ctx, deps.AuditStore, deps.Operator, audit.ActionAuthorizeVolunteer, m,
		fmt.Sprintf("scanner access until %s", m.AuthScanExpiresAt.Format(time.RFC3339)))

	return m, nil
}

// ExecuteRevokeScanAccess closes a volunteer's scanner window immediately.
// POST: the member can no longer operate the scanner, effective now
func ExecuteRevokeScanAccess(ctx context.Context, input ScanAccessInput, deps ScanAccessDeps) (member.Member, error) {
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return member.Member{}, err
	}

	m.RevokeScanAccess()
	if err := deps.MemberStore.UpdateScanAuthorization(ctx, m.ID, false, time.Time{}); err != nil {
		return member.Member{}, err
	}

	slog.Info("scan_access_event", "event", "revoked", "member_id", m.ID)
	appendAudit(ctx, deps.AuditStore, deps.Operator, audit.ActionRevokeVolunteer, m, "scanner access revoked")

	return m, nil
}

func appendAudit(ctx context.Context, store AuditLog, op Operator, action string, target member.Member, details string) {
	if store == nil {
		return
	}
	o := op.orSystem()
	entry := audit.NewEntry(action, o.ID, o.Name).
		WithTarget(target.ID, target.FullName()).
		WithDetails(details)
	if err := store.Append(ctx, entry); err != nil {
		slog.Error("audit_append_failed", "action", action, "error", err)
	}
}
