package orchestrators

import (
	"context"
	"testing"
	"time"

	memberDomain "unisp/internal/domain/member"
)

// mockScanAccessStore implements ScanAccessStore for testing.
type mockScanAccessStore struct {
	members map[string]memberDomain.Member
}

func (s *mockScanAccessStore) GetByID(_ context.Context, id string) (memberDomain.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return memberDomain.Member{}, memberDomain.ErrNotFound
	}
	return m, nil
}

func (s *mockScanAccessStore) UpdateScanAuthorization(_ context.Context, id string, active bool, expiresAt time.Time) error {
	m, ok := s.members[id]
	if !ok {
		return memberDomain.ErrNotFound
	}
	m.AuthScanActive = active
	m.AuthScanExpiresAt = expiresAt
	s.members[id] = m
	return nil
}

func TestCanOperateScanner(t *testing.T) {
	now := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*memberDomain.Member)
		want   bool
	}{
		{"staff always", func(m *memberDomain.Member) { m.Role = memberDomain.RoleStaff }, true},
		{"admin always", func(m *memberDomain.Member) { m.Role = memberDomain.RoleAdmin }, true},
		{"passive never", func(m *memberDomain.Member) { m.Role = memberDomain.RolePassive }, false},
		{"volunteer without window", func(m *memberDomain.Member) { m.Role = memberDomain.RoleVolunteer }, false},
		{"volunteer inside window", func(m *memberDomain.Member) {
			m.Role = memberDomain.RoleVolunteer
			m.GrantScanAccess(now.Add(-time.Hour))
		}, true},
		{"volunteer after expiry", func(m *memberDomain.Member) {
			m.Role = memberDomain.RoleVolunteer
			m.GrantScanAccess(now.Add(-49 * time.Hour))
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := activeMember("m-1", "CODE01")
			tt.mutate(&m)
			if got := CanOperateScanner(m, now); got != tt.want {
				t.Errorf("CanOperateScanner() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecuteGrantScanAccess(t *testing.T) {
	now := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	m := activeMember("m-1", "CODE01")
	m.Role = memberDomain.RoleVolunteer
	store := &mockScanAccessStore{members: map[string]memberDomain.Member{"m-1": m}}

	granted, err := ExecuteGrantScanAccess(context.Background(), ScanAccessInput{MemberID: "m-1", Now: now},
		ScanAccessDeps{MemberStore: store})
	if err != nil {
		t.Fatalf("ExecuteGrantScanAccess: %v", err)
	}

	want := now.Add(memberDomain.AuthWindowDuration)
	if !granted.AuthScanExpiresAt.Equal(want) {
		t.Errorf("expiry = %v, want %v", granted.AuthScanExpiresAt, want)
	}
	persisted := store.members["m-1"]
	if !persisted.AuthScanActive || !persisted.AuthScanExpiresAt.Equal(want) {
		t.Error("grant must be persisted to the store")
	}
	if !CanOperateScanner(persisted, now) {
		t.Error("granted volunteer must pass the gate at the grant instant")
	}
	if CanOperateScanner(persisted, want) {
		t.Error("granted volunteer must fail the gate at expiry")
	}
}

func TestExecuteGrantScanAccess_RegrantResets(t *testing.T) {
	first := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	m := activeMember("m-1", "CODE01")
	m.Role = memberDomain.RoleVolunteer
	store := &mockScanAccessStore{members: map[string]memberDomain.Member{"m-1": m}}
	deps := ScanAccessDeps{MemberStore: store}

	if _, err := ExecuteGrantScanAccess(context.Background(), ScanAccessInput{MemberID: "m-1", Now: first}, deps); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	second := first.Add(24 * time.Hour)
	granted, err := ExecuteGrantScanAccess(context.Background(), ScanAccessInput{MemberID: "m-1", Now: second}, deps)
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}

	want := second.Add(memberDomain.AuthWindowDuration)
	if !granted.AuthScanExpiresAt.Equal(want) {
		t.Errorf("expiry after re-grant = %v, want %v (reset, not extended)", granted.AuthScanExpiresAt, want)
	}
}

func TestExecuteRevokeScanAccess(t *testing.T) {
	now := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	m := activeMember("m-1", "CODE01")
	m.Role = memberDomain.RoleVolunteer
	m.GrantScanAccess(now)
	store := &mockScanAccessStore{members: map[string]memberDomain.Member{"m-1": m}}

	revoked, err := ExecuteRevokeScanAccess(context.Background(), ScanAccessInput{MemberID: "m-1"},
		ScanAccessDeps{MemberStore: store})
	if err != nil {
		t.Fatalf("ExecuteRevokeScanAccess: %v", err)
	}
	if revoked.AuthScanActive {
		t.Error("revoke must clear the active flag")
	}
	if CanOperateScanner(store.members["m-1"], now) {
		t.Error("revoked volunteer must fail the gate immediately")
	}
}

func TestExecuteGrantScanAccess_UnknownMember(t *testing.T) {
	store := &mockScanAccessStore{members: map[string]memberDomain.Member{}}
	_, err := ExecuteGrantScanAccess(context.Background(), ScanAccessInput{MemberID: "ghost"},
		ScanAccessDeps{MemberStore: store})
	if err == nil {
		t.Error("grant for unknown member must fail")
	}
}
