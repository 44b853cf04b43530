package orchestrators

import (
	"context"
	"errors"

	"unisp/internal/adapters/email"
	"unisp/internal/domain/member"
)

// ErrNoEmail is returned when a QR re-send targets a member without an
// email address on file.
var ErrNoEmail = errors.New("member has no email address")

// SingleQRMemberStore defines the member store interface needed for a
// single QR re-send.
type SingleQRMemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	SetMailSent(ctx context.Context, id string) error
}

// SendMemberQRInput carries input for a single QR re-send.
type SendMemberQRInput struct {
	MemberID string
}

// SendMemberQRDeps holds dependencies for SendMemberQR.
type SendMemberQRDeps struct {
	MemberStore SingleQRMemberStore
	Sender      email.Sender
}

// ExecuteSendMemberQR re-sends one member's QR credential email on demand,
// regardless of their mail_sent flag, and marks them delivered on success.
// PRE: MemberID refers to an existing member
// POST: the credential email has been accepted by the provider
func ExecuteSendMemberQR(ctx context.Context, input SendMemberQRInput, deps SendMemberQRDeps) error {
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return err
	}
	if m.Email == "" {
		return ErrNoEmail
	}

	subject, html := QRCredentialEmail(m.FirstName, m.ScanCode)
	if _, err := deps.Sender.Send(ctx, email.SendRequest{
		To:      []string{m.Email},
		Subject: subject,
		HTML:    html,
	}); err != nil {
		return err
	}

	return deps.MemberStore.SetMailSent(ctx, m.ID)
}
