package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"unisp/internal/adapters/email"
	"unisp/internal/domain/audit"
	"unisp/internal/domain/member"
	"unisp/internal/domain/passage"
)

// Check-in outcomes, in evaluation priority order.
const (
	OutcomeUnknownCode      = "unknown_code"
	OutcomeBlocked          = "blocked"
	OutcomeAlreadyCheckedIn = "already_checked_in"
	OutcomeAccepted         = "accepted"
)

// CheckInMemberStore defines the member store interface needed for check-in.
type CheckInMemberStore interface {
	GetByScanCode(ctx context.Context, code string) (member.Member, error)
}

// CheckInPassageStore defines the passage store interface needed for check-in.
type CheckInPassageStore interface {
	Create(ctx context.Context, memberID string, now time.Time) (passage.Passage, error)
	GetByMemberAndDay(ctx context.Context, memberID string, day string) (passage.Passage, error)
}

// CheckInInput carries input for the check-in orchestrator.
type CheckInInput struct {
	Code string // scan code read from the member's QR
	Now  time.Time
}

// CheckInResult is the typed outcome of a scan. Outcomes are values, never
// errors: a rejected scan is a normal answer for the scanner screen.
type CheckInResult struct {
	Outcome        string
	SequenceNumber int
	MemberID       string
	MemberName     string
	MemberStatus   string
}

// CheckInDeps holds dependencies for CheckIn.
type CheckInDeps struct {
	MemberStore  CheckInMemberStore
	PassageStore CheckInPassageStore
	AuditStore   AuditLog
	Sender       email.Sender // optional: nil skips the entry ticket email
	Operator     Operator
}

// ExecuteCheckIn resolves a scanned code into one of four outcomes.
// PRE: deps stores are non-nil
// POST: accepted creates exactly one passage with the day's next sequence
// number; every other outcome leaves no state behind
// INVARIANT: a member gets at most one passage per local calendar day
func ExecuteCheckIn(ctx context.Context, input CheckInInput, deps CheckInDeps) (CheckInResult, error) {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return CheckInResult{Outcome: OutcomeUnknownCode}, nil
	}

	m, err := deps.MemberStore.GetByScanCode(ctx, code)
	if errors.Is(err, member.ErrNotFound) {
		slog.Info("checkin_event", "event", "unknown_code", "code", code)
		return CheckInResult{Outcome: OutcomeUnknownCode}, nil
	}
	if err != nil {
		return CheckInResult{}, err
	}

	if !m.IsActive() {
		slog.Info("checkin_event", "event", "blocked", "member_id", m.ID, "status", m.Status)
		return CheckInResult{
			Outcome:      OutcomeBlocked,
			MemberID:     m.ID,
			MemberName:   m.FullName(),
			MemberStatus: m.Status,
		}, nil
	}

	day := passage.DayOf(now)

	// Fast path: the common duplicate case avoids a doomed insert.
	if existing, err := deps.PassageStore.GetByMemberAndDay(ctx, m.ID, day); err == nil {
		return alreadyCheckedIn(m, existing), nil
	} else if !errors.Is(err, passage.ErrNotFound) {
		return CheckInResult{}, err
	}

	p, err := deps.PassageStore.Create(ctx, m.ID, now)
	if errors.Is(err, passage.ErrDuplicateDay) {
		// Lost a concurrent race; the winner's passage holds the number.
		existing, lookupErr := deps.PassageStore.GetByMemberAndDay(ctx, m.ID, day)
		if lookupErr != nil {
			return CheckInResult{}, lookupErr
		}
		return alreadyCheckedIn(m, existing), nil
	}
	if err != nil {
		return CheckInResult{}, err
	}

	slog.Info("checkin_event", "event", "member_checked_in",
		"member_id", m.ID, "name", m.FullName(), "day", p.Day, "daily_number", p.DailyNumber)

	if deps.AuditStore != nil {
		op := deps.Operator.orSystem()
		entry := audit.NewEntry(audit.ActionScanSuccess, op.ID, op.Name).
			WithTarget(m.ID, m.FullName()).
			WithDetails(fmt.Sprintf("daily number %d", p.DailyNumber))
		if err := deps.AuditStore.Append(ctx, entry); err != nil {
			slog.Error("audit_append_failed", "action", entry.Action, "error", err)
		}
	}

	if deps.Sender != nil && m.Email != "" {
		to, name, seq := m.Email, m.FirstName, p.DailyNumber
		sender := deps.Sender
		runDetached("entry_ticket_email", func(ctx context.Context) error {
			subject, html := EntryTicketEmail(name, seq, now)
			_, err := sender.Send(ctx, email.SendRequest{
				To:      []string{to},
				Subject: subject,
				HTML:    html,
			})
			return err
		})
	}

	return CheckInResult{
		Outcome:        OutcomeAccepted,
		SequenceNumber: p.DailyNumber,
		MemberID:       m.ID,
		MemberName:     m.FullName(),
		MemberStatus:   m.Status,
	}, nil
}

func alreadyCheckedIn(m member.Member, p passage.Passage) CheckInResult {
	slog.Info("checkin_event", "event", "already_checked_in",
		"member_id", m.ID, "day", p.Day, "daily_number", p.DailyNumber)
	return CheckInResult{
		Outcome:        OutcomeAlreadyCheckedIn,
		SequenceNumber: p.DailyNumber,
		MemberID:       m.ID,
		MemberName:     m.FullName(),
		MemberStatus:   m.Status,
	}
}
