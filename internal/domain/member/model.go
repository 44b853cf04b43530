package member

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role constants
const (
	RoleStaff     = "staff"
	RoleAdmin     = "admin"
	RoleVolunteer = "volunteer"
	RolePassive   = "passive"
)

// Status constants
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusInactive  = "inactive"
	StatusExcluded  = "excluded"
)

// Business rule constants
const (
	// AuthWindowDuration is how long a volunteer scan authorization lasts.
	AuthWindowDuration = 48 * time.Hour

	// ScanCodeLength is the length of the short code encoded in member QR images.
	ScanCodeLength = 6

	// DefaultVolunteerSecret is the credential assigned to volunteers on import.
	DefaultVolunteerSecret = "pasta"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleStaff, RoleAdmin, RoleVolunteer, RolePassive}

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusActive, StatusSuspended, StatusInactive, StatusExcluded}

// Domain errors
var (
	ErrNotFound         = errors.New("member not found")
	ErrNotActive        = errors.New("member is not active")
	ErrAlreadySuspended = errors.New("member is already suspended")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrNoCredential     = errors.New("member has no credential set")
)

// Member is the canonical directory record: identity, lifecycle state,
// scanner authorization window, and QR delivery tracking.
type Member struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	FiscalCode string
	Role       string
	Status     string

	// ScanCode is the unique short token encoded in the member's QR image.
	ScanCode string

	// Scanner authorization window. AuthScanExpiresAt is meaningful only
	// while AuthScanActive is true.
	AuthScanActive    bool
	AuthScanExpiresAt time.Time

	// MailSent marks that the QR credential email has been delivered.
	MailSent bool

	PasswordHash string

	// Free-form profile fields carried over from the membership sheet.
	IsStudent          string
	StudentNumber      string
	CourseName         string
	CourseYear         string
	EnrollmentCertURL  string
	ResidencePermitURL string
	IDDocumentURL      string
	ISEEURL            string
	PrivacyConsent     string

	// SourceTimestamp is the raw submission timestamp from the import sheet.
	SourceTimestamp string

	CreatedAt time.Time
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: FiscalCode must not be empty, Role and Status must be valid values
func (m *Member) Validate() error {
	if strings.TrimSpace(m.FirstName) == "" && strings.TrimSpace(m.LastName) == "" {
		return errors.New("member name cannot be empty")
	}
	if strings.TrimSpace(m.FiscalCode) == "" {
		return errors.New("member fiscal code cannot be empty")
	}
	if m.Email != "" && !strings.Contains(m.Email, "@") {
		return errors.New("member email must be valid")
	}
	if !contains(ValidRoles, m.Role) {
		return errors.New("role must be one of: staff, admin, volunteer, passive")
	}
	if !contains(ValidStatuses, m.Status) {
		return errors.New("status must be one of: active, suspended, inactive, excluded")
	}
	return nil
}

// FullName returns the display name used in passages, audit entries and emails.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// IsActive returns true if the member is currently active.
// INVARIANT: Status field is not mutated
func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// IsStaff returns true for staff and admin roles.
// INVARIANT: Role field is not mutated
func (m *Member) IsStaff() bool {
	return m.Role == RoleStaff || m.Role == RoleAdmin
}

// IsScannerAuthorized reports whether the scanner authorization window is
// currently open.
// PRE: now is the evaluation instant
// POST: true iff AuthScanActive and now is strictly before the expiry
func (m *Member) IsScannerAuthorized(now time.Time) bool {
	if !m.AuthScanActive || m.AuthScanExpiresAt.IsZero() {
		return false
	}
	return now.Before(m.AuthScanExpiresAt)
}

// GrantScanAccess opens (or resets) the 48-hour authorization window.
// PRE: now is the grant instant
// POST: AuthScanActive=true, expiry = now + AuthWindowDuration
// INVARIANT: re-granting resets the window, it never extends a previous one
func (m *Member) GrantScanAccess(now time.Time) {
	m.AuthScanActive = true
	m.AuthScanExpiresAt = now.Add(AuthWindowDuration)
}

// RevokeScanAccess closes the authorization window immediately.
// POST: AuthScanActive=false, expiry cleared
func (m *Member) RevokeScanAccess() {
	m.AuthScanActive = false
	m.AuthScanExpiresAt = time.Time{}
}

// Suspend moves an active member to suspended.
// PRE: member status is active
// POST: Status is suspended
// INVARIANT: the transition is one-directional; it never auto-reverses
func (m *Member) Suspend() error {
	if m.Status == StatusSuspended {
		return ErrAlreadySuspended
	}
	if m.Status != StatusActive {
		return ErrNotActive
	}
	m.Status = StatusSuspended
	return nil
}

// SetPassword hashes and stores a password using bcrypt with cost 12.
// PRE: plaintext is non-empty
// POST: PasswordHash is set to bcrypt hash
func (m *Member) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	m.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// POST: Returns nil on match, ErrWrongPassword on mismatch
func (m *Member) CheckPassword(plaintext string) error {
	if m.PasswordHash == "" {
		return ErrNoCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
