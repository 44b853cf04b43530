package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"unisp/internal/domain/member"
)

// SeedAdminMemberStore defines the member store interface needed for
// admin seeding.
type SeedAdminMemberStore interface {
	GetByEmail(ctx context.Context, email string) (member.Member, error)
	Save(ctx context.Context, value member.Member) error
}

// SeedAdminInput carries the bootstrap admin credentials.
type SeedAdminInput struct {
	Email    string
	Password string
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	MemberStore SeedAdminMemberStore
}

// ExecuteSeedAdmin creates the initial admin member if the email is not
// already registered. Idempotent: an existing member short-circuits.
// PRE: Email and Password are non-empty
// POST: a member with admin role and a login credential exists
func ExecuteSeedAdmin(ctx context.Context, input SeedAdminInput, deps SeedAdminDeps) error {
	if input.Email == "" || input.Password == "" {
		return errors.New("admin email and password must be set")
	}

	if _, err := deps.MemberStore.GetByEmail(ctx, input.Email); err == nil {
		return nil
	} else if !errors.Is(err, member.ErrNotFound) {
		return err
	}

	m := member.Member{
		ID:         uuid.New().String(),
		FirstName:  "Admin",
		LastName:   "UNISP",
		Email:      input.Email,
		FiscalCode: "ADMIN-" + uuid.New().String()[:8],
		Role:       member.RoleAdmin,
		Status:     member.StatusActive,
		ScanCode:   newScanCode(),
		CreatedAt:  time.Now(),
	}
	if err := m.SetPassword(input.Password); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return err
	}

	slog.Info("seed_event", "event", "admin_created", "email", input.Email)
	return nil
}
