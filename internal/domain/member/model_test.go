package member

import (
	"errors"
	"testing"
	"time"
)

func validMember() Member {
	return Member{
		ID:         "m-1",
		FirstName:  "Mario",
		LastName:   "Rossi",
		Email:      "mario@test.it",
		FiscalCode: "RSSMRA90A01H501W",
		Role:       RolePassive,
		Status:     StatusActive,
		ScanCode:   "A1B2C3",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Member)
		wantErr bool
	}{
		{"valid", func(m *Member) {}, false},
		{"empty name", func(m *Member) { m.FirstName = ""; m.LastName = "" }, true},
		{"empty fiscal code", func(m *Member) { m.FiscalCode = " " }, true},
		{"bad email", func(m *Member) { m.Email = "not-an-email" }, true},
		{"empty email ok", func(m *Member) { m.Email = "" }, false},
		{"bad role", func(m *Member) { m.Role = "president" }, true},
		{"bad status", func(m *Member) { m.Status = "Attivo" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMember()
			tt.mutate(&m)
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFullName(t *testing.T) {
	m := validMember()
	if got := m.FullName(); got != "Mario Rossi" {
		t.Errorf("FullName() = %q, want %q", got, "Mario Rossi")
	}
	m.LastName = ""
	if got := m.FullName(); got != "Mario" {
		t.Errorf("FullName() = %q, want %q", got, "Mario")
	}
}

func TestGrantScanAccessWindow(t *testing.T) {
	grantAt := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	m := validMember()
	m.Role = RoleVolunteer
	m.GrantScanAccess(grantAt)

	if !m.IsScannerAuthorized(grantAt) {
		t.Error("authorization should be open at the grant instant")
	}
	if !m.IsScannerAuthorized(grantAt.Add(AuthWindowDuration - time.Second)) {
		t.Error("authorization should be open just before expiry")
	}
	if m.IsScannerAuthorized(grantAt.Add(AuthWindowDuration)) {
		t.Error("authorization should be closed exactly at expiry")
	}
}

func TestGrantScanAccessResetsWindow(t *testing.T) {
	first := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	m := validMember()
	m.GrantScanAccess(first)

	// Re-grant one day later: the window must end 48h after the re-grant,
	// not 96h after the first grant.
	second := first.Add(24 * time.Hour)
	m.GrantScanAccess(second)

	want := second.Add(AuthWindowDuration)
	if !m.AuthScanExpiresAt.Equal(want) {
		t.Errorf("expiry = %v, want %v", m.AuthScanExpiresAt, want)
	}
}

func TestRevokeScanAccess(t *testing.T) {
	now := time.Now()
	m := validMember()
	m.GrantScanAccess(now)
	m.RevokeScanAccess()

	if m.IsScannerAuthorized(now) {
		t.Error("revoke must close the window immediately")
	}
	if m.AuthScanActive || !m.AuthScanExpiresAt.IsZero() {
		t.Error("revoke must clear both window fields")
	}
}

func TestIsScannerAuthorizedInactiveFlag(t *testing.T) {
	m := validMember()
	m.AuthScanActive = false
	m.AuthScanExpiresAt = time.Now().Add(time.Hour)
	if m.IsScannerAuthorized(time.Now()) {
		t.Error("a future expiry without the active flag must not authorize")
	}
}

func TestSuspend(t *testing.T) {
	m := validMember()
	if err := m.Suspend(); err != nil {
		t.Fatalf("Suspend() on active member: %v", err)
	}
	if m.Status != StatusSuspended {
		t.Errorf("status = %q, want %q", m.Status, StatusSuspended)
	}
	if err := m.Suspend(); !errors.Is(err, ErrAlreadySuspended) {
		t.Errorf("second Suspend() error = %v, want ErrAlreadySuspended", err)
	}

	m.Status = StatusInactive
	if err := m.Suspend(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Suspend() on inactive member error = %v, want ErrNotActive", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	m := validMember()
	if err := m.SetPassword("pasta"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := m.CheckPassword("pasta"); err != nil {
		t.Errorf("CheckPassword with correct password: %v", err)
	}
	if err := m.CheckPassword("pizza"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("CheckPassword with wrong password = %v, want ErrWrongPassword", err)
	}
}

func TestPasswordEdgeCases(t *testing.T) {
	m := validMember()
	if err := m.SetPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("SetPassword(\"\") = %v, want ErrEmptyPassword", err)
	}
	if err := m.CheckPassword("anything"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("CheckPassword without hash = %v, want ErrNoCredential", err)
	}
}

func TestIsStaff(t *testing.T) {
	m := validMember()
	for role, want := range map[string]bool{
		RoleStaff:     true,
		RoleAdmin:     true,
		RoleVolunteer: false,
		RolePassive:   false,
	} {
		m.Role = role
		if got := m.IsStaff(); got != want {
			t.Errorf("IsStaff() with role %q = %v, want %v", role, got, want)
		}
	}
}
