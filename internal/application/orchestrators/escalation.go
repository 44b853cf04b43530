package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"unisp/internal/adapters/email"
	"unisp/internal/domain/audit"
	"unisp/internal/domain/member"
	"unisp/internal/domain/passage"
)

// Absence thresholds. Four absences trigger a warning; the fifth suspends.
const (
	WarningAbsences    = 4
	SuspensionAbsences = 5
)

// EscalationMemberStore defines the member store interface needed for
// absence escalation.
type EscalationMemberStore interface {
	ListByStatus(ctx context.Context, status string) ([]member.Member, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

// EscalationPassageStore defines the passage store interface needed for
// absence escalation.
type EscalationPassageStore interface {
	ListAll(ctx context.Context) ([]passage.Passage, error)
}

// AbsenceRisk is one member's standing in the at-risk report.
type AbsenceRisk struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Absences int    `json:"absences"`
	Status   string `json:"status"`
}

// EvaluateAbsencesResult summarizes one escalation pass.
type EvaluateAbsencesResult struct {
	TotalActivityDays int
	Warned            int
	Suspended         int
	AtRisk            []AbsenceRisk
}

// EvaluateAbsencesDeps holds dependencies for EvaluateAbsences.
type EvaluateAbsencesDeps struct {
	MemberStore  EscalationMemberStore
	PassageStore EscalationPassageStore
	AuditStore   AuditLog
	Sender       email.Sender // optional: nil skips warning and suspension emails
}

// ExecuteEvaluateAbsences recomputes every active member's absence count
// from the full passage history and applies the escalation policy.
// An absence is an activity day (any day with at least one passage) the
// member did not attend. Only volunteer and passive members are scored.
// PRE: stores are non-nil
// POST: members at exactly WarningAbsences get a warning email; members at
// SuspensionAbsences or more are suspended and notified once
// INVARIANT: suspension is one-directional; a suspended member is never
// re-suspended because only active members are scored
func ExecuteEvaluateAbsences(ctx context.Context, deps EvaluateAbsencesDeps) (EvaluateAbsencesResult, error) {
	passages, err := deps.PassageStore.ListAll(ctx)
	if err != nil {
		return EvaluateAbsencesResult{}, err
	}

	activityDays := make(map[string]struct{})
	presentDays := make(map[string]map[string]struct{})
	for _, p := range passages {
		activityDays[p.Day] = struct{}{}
		if presentDays[p.MemberID] == nil {
			presentDays[p.MemberID] = make(map[string]struct{})
		}
		presentDays[p.MemberID][p.Day] = struct{}{}
	}
	total := len(activityDays)

	members, err := deps.MemberStore.ListByStatus(ctx, member.StatusActive)
	if err != nil {
		return EvaluateAbsencesResult{}, err
	}

	result := EvaluateAbsencesResult{TotalActivityDays: total}
	for _, m := range members {
		if m.Role != member.RoleVolunteer && m.Role != member.RolePassive {
			continue
		}

		absences := total - len(presentDays[m.ID])
		if absences < 0 {
			absences = 0
		}
		if absences < WarningAbsences {
			continue
		}

		if absences >= SuspensionAbsences {
			if err := suspendMember(ctx, &m, deps); err != nil {
				return result, err
			}
			result.Suspended++
		} else {
			sendAbsenceNotice(deps.Sender, m, false)
			result.Warned++
		}

		result.AtRisk = append(result.AtRisk, AbsenceRisk{
			MemberID: m.ID,
			Name:     m.FullName(),
			Email:    m.Email,
			Absences: absences,
			Status:   m.Status,
		})
	}

	sort.Slice(result.AtRisk, func(i, j int) bool {
		if result.AtRisk[i].Absences != result.AtRisk[j].Absences {
			return result.AtRisk[i].Absences > result.AtRisk[j].Absences
		}
		return result.AtRisk[i].Name < result.AtRisk[j].Name
	})

	slog.Info("absence_evaluation", "activity_days", total,
		"warned", result.Warned, "suspended", result.Suspended)
	return result, nil
}

func suspendMember(ctx context.Context, m *member.Member, deps EvaluateAbsencesDeps) error {
	if err := m.Suspend(); err != nil {
		// Already out of active status; nothing to do.
		if errors.Is(err, member.ErrAlreadySuspended) || errors.Is(err, member.ErrNotActive) {
			return nil
		}
		return err
	}
	if err := deps.MemberStore.UpdateStatus(ctx, m.ID, member.StatusSuspended); err != nil {
		return err
	}

	slog.Info("absence_event", "event", "member_suspended", "member_id", m.ID, "name", m.FullName())
	appendAudit(ctx, deps.AuditStore, Operator{}, audit.ActionMemberSuspended, *m,
		"suspended after reaching the absence limit")
	sendAbsenceNotice(deps.Sender, *m, true)
	return nil
}

func sendAbsenceNotice(sender email.Sender, m member.Member, suspension bool) {
	if sender == nil || m.Email == "" {
		return
	}

	to, name := m.Email, m.FullName()
	task := "absence_warning_email"
	if suspension {
		task = "suspension_email"
	}
	runDetached(task, func(ctx context.Context) error {
		var subject, html string
		if suspension {
			subject, html = SuspensionEmail(name)
		} else {
			subject, html = AbsenceWarningEmail(name)
		}
		_, err := sender.Send(ctx, email.SendRequest{
			To:      []string{to},
			Subject: subject,
			HTML:    html,
		})
		return err
	})
}
