package member

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"unisp/internal/adapters/storage"
	domain "unisp/internal/domain/member"
)

const memberColumns = `id, first_name, last_name, email, phone, fiscal_code, role, status,
	scan_code, auth_scan_active, auth_scan_expires_at, mail_sent, password_hash,
	is_student, student_number, course_name, course_year, enrollment_cert_url,
	residence_permit_url, id_document_url, isee_url, privacy_consent,
	source_timestamp, created_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (domain.Member, error) {
	var entity domain.Member
	var email, phone, authExpires sql.NullString
	var isStudent, studentNumber, courseName, courseYear sql.NullString
	var certURL, permitURL, docURL, iseeURL, privacy, sourceTS sql.NullString
	var authActive, mailSent int
	var createdAt string

	err := row.Scan(
		&entity.ID,
		&entity.FirstName,
		&entity.LastName,
		&email,
		&phone,
		&entity.FiscalCode,
		&entity.Role,
		&entity.Status,
		&entity.ScanCode,
		&authActive,
		&authExpires,
		&mailSent,
		&entity.PasswordHash,
		&isStudent,
		&studentNumber,
		&courseName,
		&courseYear,
		&certURL,
		&permitURL,
		&docURL,
		&iseeURL,
		&privacy,
		&sourceTS,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return domain.Member{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Member{}, err
	}

	entity.Email = email.String
	entity.Phone = phone.String
	entity.AuthScanActive = authActive != 0
	entity.MailSent = mailSent != 0
	entity.IsStudent = isStudent.String
	entity.StudentNumber = studentNumber.String
	entity.CourseName = courseName.String
	entity.CourseYear = courseYear.String
	entity.EnrollmentCertURL = certURL.String
	entity.ResidencePermitURL = permitURL.String
	entity.IDDocumentURL = docURL.String
	entity.ISEEURL = iseeURL.String
	entity.PrivacyConsent = privacy.String
	entity.SourceTimestamp = sourceTS.String

	if authExpires.Valid && authExpires.String != "" {
		t, parseErr := time.Parse(time.RFC3339Nano, authExpires.String)
		if parseErr != nil {
			return domain.Member{}, fmt.Errorf("failed to parse auth_scan_expires_at: %w", parseErr)
		}
		entity.AuthScanExpiresAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		entity.CreatedAt = t
	}

	return entity, nil
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE id = ?"
	return scanMember(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a Member by email, case-insensitively.
// PRE: email is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE LOWER(email) = LOWER(?)"
	return scanMember(s.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

// GetByScanCode retrieves a Member by its scan code (exact, case-sensitive).
// PRE: code is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByScanCode(ctx context.Context, code string) (domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE scan_code = ?"
	return scanMember(s.db.QueryRowContext(ctx, query, code))
}

// GetByFiscalCode retrieves a Member by its fiscal code.
// PRE: fiscalCode is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByFiscalCode(ctx context.Context, fiscalCode string) (domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE fiscal_code = ?"
	return scanMember(s.db.QueryRowContext(ctx, query, fiscalCode))
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := []string{
		"id", "first_name", "last_name", "email", "phone", "fiscal_code", "role", "status",
		"scan_code", "auth_scan_active", "auth_scan_expires_at", "mail_sent", "password_hash",
		"is_student", "student_number", "course_name", "course_year", "enrollment_cert_url",
		"residence_permit_url", "id_document_url", "isee_url", "privacy_consent",
		"source_timestamp", "created_at",
	}
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO member (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	var authExpires any
	if !entity.AuthScanExpiresAt.IsZero() {
		authExpires = entity.AuthScanExpiresAt.Format(time.RFC3339Nano)
	}
	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.FirstName,
		entity.LastName,
		nullable(entity.Email),
		nullable(entity.Phone),
		entity.FiscalCode,
		entity.Role,
		entity.Status,
		entity.ScanCode,
		boolToInt(entity.AuthScanActive),
		authExpires,
		boolToInt(entity.MailSent),
		entity.PasswordHash,
		nullable(entity.IsStudent),
		nullable(entity.StudentNumber),
		nullable(entity.CourseName),
		nullable(entity.CourseYear),
		nullable(entity.EnrollmentCertURL),
		nullable(entity.ResidencePermitURL),
		nullable(entity.IDDocumentURL),
		nullable(entity.ISEEURL),
		nullable(entity.PrivacyConsent),
		nullable(entity.SourceTimestamp),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// List returns members matching the filter, ordered by last name.
// POST: Returns matching members; an empty filter returns everyone
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE 1=1"
	var args []any

	if filter.Role != "" {
		query += " AND role = ?"
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += " AND (first_name LIKE ? OR last_name LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term)
	}
	query += " ORDER BY last_name, first_name"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		entity, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// ListByStatus returns every member in the given lifecycle status.
func (s *SQLiteStore) ListByStatus(ctx context.Context, status string) ([]domain.Member, error) {
	return s.List(ctx, ListFilter{Status: status})
}

// ListAll returns every member on record.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Member, error) {
	return s.List(ctx, ListFilter{})
}

// ListUnnotified returns up to limit members whose QR credential email has
// not been delivered yet and who have an email address on file.
// PRE: limit > 0
// POST: Returns the next batch of dispatch candidates
func (s *SQLiteStore) ListUnnotified(ctx context.Context, limit int) ([]domain.Member, error) {
	query := "SELECT " + memberColumns + ` FROM member
		WHERE mail_sent = 0 AND email IS NOT NULL AND email != ''
		ORDER BY created_at LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		entity, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// SetMailSent marks the QR credential email as delivered.
// PRE: id is non-empty; the email send has been confirmed
// POST: mail_sent flag is persisted; the member leaves the dispatch queue
func (s *SQLiteStore) SetMailSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE member SET mail_sent = 1 WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus sets the member's lifecycle status.
// PRE: status is a valid status value
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE member SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateScanAuthorization persists the scanner authorization window.
// PRE: expiresAt is zero iff active is false
func (s *SQLiteStore) UpdateScanAuthorization(ctx context.Context, id string, active bool, expiresAt time.Time) error {
	var expires any
	if !expiresAt.IsZero() {
		expires = expiresAt.Format(time.RFC3339Nano)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE member SET auth_scan_active = ?, auth_scan_expires_at = ? WHERE id = ?",
		boolToInt(active), expires, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
