package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"unisp/internal/domain/audit"
	"unisp/internal/domain/member"
)

// RawRow is one pre-parsed row of the membership sheet export. The JSON
// field names match the sheet's column headers.
type RawRow struct {
	Timestamp       string `json:"crono"`
	Email           string `json:"email"`
	FirstName       string `json:"nome"`
	LastName        string `json:"cognome"`
	Phone           string `json:"tel"`
	FiscalCode      string `json:"cf"`
	MemberType      string `json:"tipo"`
	IsStudent       string `json:"studente"`
	StudentNumber   string `json:"matre"`
	EnrollmentCert  string `json:"cert"`
	CourseName      string `json:"corso"`
	CourseYear      string `json:"anno"`
	ResidencePermit string `json:"permesso"`
	IDDocument      string `json:"doc"`
	ISEE            string `json:"isee"`
	Privacy         string `json:"privacy"`
}

// ImportMembersInput carries the rows to reconcile.
type ImportMembersInput struct {
	Rows []RawRow
}

// ImportMembersResult reports the reconciliation outcome.
type ImportMembersResult struct {
	Imported int
	Skipped  int
}

// ImportMemberStore defines the member store interface needed for import.
type ImportMemberStore interface {
	GetByFiscalCode(ctx context.Context, fiscalCode string) (member.Member, error)
	Save(ctx context.Context, value member.Member) error
}

// ImportMembersDeps holds dependencies for ImportMembers.
type ImportMembersDeps struct {
	MemberStore ImportMemberStore
	AuditStore  AuditLog
	Operator    Operator
}

// sheetTimestampLayouts are tried in order when parsing the submission
// timestamp column. The sheet writes times with periods, not colons.
var sheetTimestampLayouts = []string{
	"02/01/2006 15.04.05",
	"02/01/2006",
}

// ExecuteImportMembers reconciles a sheet export against the directory.
// Rows without a fiscal code are dropped. Rows sharing a fiscal code are
// deduplicated keeping the latest submission timestamp, compared
// chronologically after parsing. Survivors whose fiscal code already
// exists are skipped; the rest are inserted as active members with fresh
// scan codes.
// PRE: rows come from the association's membership sheet
// POST: at most one new member per previously unknown fiscal code
func ExecuteImportMembers(ctx context.Context, input ImportMembersInput, deps ImportMembersDeps) (ImportMembersResult, error) {
	survivors := dedupeRows(input.Rows)

	var result ImportMembersResult
	for _, row := range survivors {
		cf := strings.ToUpper(strings.TrimSpace(row.FiscalCode))

		_, err := deps.MemberStore.GetByFiscalCode(ctx, cf)
		if err == nil {
			result.Skipped++
			continue
		}
		if !errors.Is(err, member.ErrNotFound) {
			return result, err
		}

		m, err := memberFromRow(row, cf)
		if err != nil {
			slog.Error("import_event", "event", "row_rejected", "fiscal_code", cf, "error", err)
			continue
		}
		if err := deps.MemberStore.Save(ctx, m); err != nil {
			slog.Error("import_event", "event", "insert_failed", "fiscal_code", cf, "error", err)
			continue
		}
		result.Imported++
	}

	slog.Info("import_event", "event", "import_done",
		"rows", len(input.Rows), "imported", result.Imported, "skipped", result.Skipped)

	if deps.AuditStore != nil {
		op := deps.Operator.orSystem()
		entry := audit.NewEntry(audit.ActionImportMembers, op.ID, op.Name).
			WithDetails(fmt.Sprintf("imported %d, skipped %d of %d rows",
				result.Imported, result.Skipped, len(input.Rows)))
		if err := deps.AuditStore.Append(ctx, entry); err != nil {
			slog.Error("audit_append_failed", "action", entry.Action, "error", err)
		}
	}

	return result, nil
}

// dedupeRows drops rows without a fiscal code and keeps, per fiscal code,
// the row with the latest parsed timestamp.
func dedupeRows(rows []RawRow) []RawRow {
	type candidate struct {
		row RawRow
		at  time.Time
	}
	best := make(map[string]candidate)
	var order []string

	for _, row := range rows {
		cf := strings.ToUpper(strings.TrimSpace(row.FiscalCode))
		if cf == "" {
			continue
		}
		at := parseSheetTimestamp(row.Timestamp)
		existing, seen := best[cf]
		if !seen {
			order = append(order, cf)
		}
		if !seen || at.After(existing.at) {
			best[cf] = candidate{row: row, at: at}
		}
	}

	survivors := make([]RawRow, 0, len(order))
	for _, cf := range order {
		survivors = append(survivors, best[cf].row)
	}
	return survivors
}

// parseSheetTimestamp parses the submission timestamp. Unparseable values
// get the zero time so any parseable row wins the dedup.
func parseSheetTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range sheetTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func memberFromRow(row RawRow, cf string) (member.Member, error) {
	role := roleFromType(row.MemberType)

	m := member.Member{
		ID:                 uuid.New().String(),
		FirstName:          strings.TrimSpace(row.FirstName),
		LastName:           strings.TrimSpace(row.LastName),
		Email:              strings.ToLower(strings.TrimSpace(row.Email)),
		Phone:              cleanPhone(row.Phone),
		FiscalCode:         cf,
		Role:               role,
		Status:             member.StatusActive,
		ScanCode:           newScanCode(),
		IsStudent:          row.IsStudent,
		StudentNumber:      row.StudentNumber,
		CourseName:         row.CourseName,
		CourseYear:         row.CourseYear,
		EnrollmentCertURL:  row.EnrollmentCert,
		ResidencePermitURL: row.ResidencePermit,
		IDDocumentURL:      row.IDDocument,
		ISEEURL:            row.ISEE,
		PrivacyConsent:     row.Privacy,
		SourceTimestamp:    row.Timestamp,
		CreatedAt:          time.Now(),
	}

	if role == member.RoleVolunteer {
		if err := m.SetPassword(member.DefaultVolunteerSecret); err != nil {
			return member.Member{}, err
		}
	}
	if err := m.Validate(); err != nil {
		return member.Member{}, err
	}
	return m, nil
}

// roleFromType maps the sheet's membership type column to a role. The
// column reads like "Socio ordinario (VOLONTARIO)"; the parenthesized tag
// is authoritative when present.
func roleFromType(tipo string) string {
	v := strings.ToUpper(tipo)
	if open := strings.Index(v, "("); open >= 0 {
		if end := strings.Index(v[open:], ")"); end > 0 {
			v = v[open+1 : open+end]
		}
	}
	switch {
	case strings.Contains(v, "VOLONT"):
		return member.RoleVolunteer
	case strings.Contains(v, "ADMIN"):
		return member.RoleAdmin
	case strings.Contains(v, "STAFF"):
		return member.RoleStaff
	default:
		return member.RolePassive
	}
}

// cleanPhone strips the Italian country prefix and whitespace.
func cleanPhone(phone string) string {
	p := strings.ReplaceAll(phone, "+39", "")
	p = strings.ReplaceAll(p, " ", "")
	return strings.TrimSpace(p)
}

// newScanCode derives a 6-character scan code from a fresh UUID.
func newScanCode() string {
	return strings.ToUpper(uuid.New().String()[:member.ScanCodeLength])
}
