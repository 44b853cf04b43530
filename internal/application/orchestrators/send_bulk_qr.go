package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"unisp/internal/adapters/email"
	"unisp/internal/domain/member"
)

// DefaultQRBatchSize bounds one dispatcher run so a single HTTP request
// never outlives the provider's patience; the caller re-invokes until
// Finished.
const DefaultQRBatchSize = 5

// DefaultSendInterval paces sends inside a batch.
const DefaultSendInterval = 1500 * time.Millisecond

// BulkQRMemberStore defines the member store interface needed by the
// dispatcher.
type BulkQRMemberStore interface {
	ListUnnotified(ctx context.Context, limit int) ([]member.Member, error)
	SetMailSent(ctx context.Context, id string) error
}

// SendBulkQRInput carries input for one dispatcher run.
type SendBulkQRInput struct {
	BatchSize int // 0 means DefaultQRBatchSize
}

// SendBulkQRResult reports one dispatcher run. Finished means the queue
// was empty when the run started.
type SendBulkQRResult struct {
	Sent     int
	Failed   int
	Finished bool
}

// SendBulkQRDeps holds dependencies for SendBulkQR.
type SendBulkQRDeps struct {
	MemberStore BulkQRMemberStore
	Sender      email.Sender
	Limiter     *rate.Limiter // optional: nil uses the default pacing
}

// ExecuteSendBulkQR processes one batch of the QR credential queue.
// Each member is flagged only after their send is confirmed, so a crash or
// a failed send leaves them queued for the next run.
// PRE: Sender is non-nil
// POST: Sent members have mail_sent=true; failed members are untouched
// INVARIANT: repeated runs never send to an already flagged member
func ExecuteSendBulkQR(ctx context.Context, input SendBulkQRInput, deps SendBulkQRDeps) (SendBulkQRResult, error) {
	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultQRBatchSize
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(DefaultSendInterval), 1)
	}

	candidates, err := deps.MemberStore.ListUnnotified(ctx, batchSize)
	if err != nil {
		return SendBulkQRResult{}, err
	}
	if len(candidates) == 0 {
		slog.Info("bulk_qr_event", "event", "queue_empty")
		return SendBulkQRResult{Finished: true}, nil
	}

	var result SendBulkQRResult
	for _, m := range candidates {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		subject, html := QRCredentialEmail(m.FirstName, m.ScanCode)
		if _, err := deps.Sender.Send(ctx, email.SendRequest{
			To:      []string{m.Email},
			Subject: subject,
			HTML:    html,
		}); err != nil {
			slog.Error("bulk_qr_event", "event", "send_failed", "member_id", m.ID, "error", err)
			result.Failed++
			continue
		}

		// The flag must follow the confirmed send. If it cannot be
		// persisted the member would be mailed again next run, so stop here.
		if err := deps.MemberStore.SetMailSent(ctx, m.ID); err != nil {
			return result, fmt.Errorf("failed to flag member %s after send: %w", m.ID, err)
		}
		result.Sent++
	}

	slog.Info("bulk_qr_event", "event", "batch_done", "sent", result.Sent, "failed", result.Failed)
	return result, nil
}
