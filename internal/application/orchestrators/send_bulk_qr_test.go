package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"golang.org/x/time/rate"

	"unisp/internal/adapters/email"
	memberDomain "unisp/internal/domain/member"
)

// mockBulkQRStore implements BulkQRMemberStore for testing.
type mockBulkQRStore struct {
	members   map[string]memberDomain.Member
	flagErr   error
	flagCalls []string
}

func (s *mockBulkQRStore) ListUnnotified(_ context.Context, limit int) ([]memberDomain.Member, error) {
	var pending []memberDomain.Member
	for _, m := range s.members {
		if !m.MailSent && m.Email != "" {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *mockBulkQRStore) SetMailSent(_ context.Context, id string) error {
	if s.flagErr != nil {
		return s.flagErr
	}
	m, ok := s.members[id]
	if !ok {
		return memberDomain.ErrNotFound
	}
	m.MailSent = true
	s.members[id] = m
	s.flagCalls = append(s.flagCalls, id)
	return nil
}

// failingSender fails for the addresses in failFor and records the rest.
type failingSender struct {
	failFor map[string]bool
	sent    []string
}

func (s *failingSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	to := req.To[0]
	if s.failFor[to] {
		return email.SendResult{}, errors.New("provider rejected")
	}
	s.sent = append(s.sent, to)
	return email.SendResult{MessageID: "msg-" + to}, nil
}

func bulkStoreWithMembers(n int) *mockBulkQRStore {
	store := &mockBulkQRStore{members: make(map[string]memberDomain.Member)}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("m-%02d", i)
		m := activeMember(id, fmt.Sprintf("CODE%02d", i))
		m.Email = id + "@test.it"
		store.members[id] = m
	}
	return store
}

func fastLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func TestExecuteSendBulkQR_DrainsSevenMembersInThreeRuns(t *testing.T) {
	store := bulkStoreWithMembers(7)
	sender := email.NewNoopSender()
	deps := SendBulkQRDeps{MemberStore: store, Sender: sender, Limiter: fastLimiter()}

	first, err := ExecuteSendBulkQR(context.Background(), SendBulkQRInput{}, deps)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Sent != 5 || first.Finished {
		t.Errorf("first run = %+v, want Sent=5 Finished=false", first)
	}

	second, err := ExecuteSendBulkQR(context.Background(), SendBulkQRInput{}, deps)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Sent != 2 || second.Finished {
		t.Errorf("second run = %+v, want Sent=2 Finished=false", second)
	}

	third, err := ExecuteSendBulkQR(context.Background(), SendBulkQRInput{}, deps)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if !third.Finished || third.Sent != 0 {
		t.Errorf("third run = %+v, want Sent=0 Finished=true", third)
	}

	if got := len(sender.Sent()); got != 7 {
		t.Errorf("total emails = %d, want 7", got)
	}
	for id, m := range store.members {
		if !m.MailSent {
			t.Errorf("member %s not flagged after drain", id)
		}
	}
}

func TestExecuteSendBulkQR_FailedSendLeavesMemberQueued(t *testing.T) {
	store := bulkStoreWithMembers(3)
	sender := &failingSender{failFor: map[string]bool{"m-01@test.it": true}}
	deps := SendBulkQRDeps{MemberStore: store, Sender: sender, Limiter: fastLimiter()}

	result, err := ExecuteSendBulkQR(context.Background(), SendBulkQRInput{}, deps)
	if err != nil {
		t.Fatalf("ExecuteSendBulkQR: %v", err)
	}
	if result.Sent != 2 || result.Failed != 1 {
		t.Errorf("result = %+v, want Sent=2 Failed=1", result)
	}
	if store.members["m-01"].MailSent {
		t.Error("failed send must not flag the member")
	}

	// The member stays queued and is retried on the next run.
	sender.failFor = nil
	again, err := ExecuteSendBulkQR(context.Background(), SendBulkQRInput{}, deps)
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if again.Sent != 1 {
		t.Errorf("retry run sent = %d, want 1", again.Sent)
	}
	if !store.members["m-01"].MailSent {
		t.Error("member must be flagged after a successful retry")
	}
}

func TestExecuteSendBulkQR_FlagFailureAborts(t *testing.T) {
	store := bulkStoreWithMembers(3)
	store.flagErr = errors.New("disk full")
	deps := SendBulkQRDeps{MemberStore: store, Sender: email.NewNoopSender(), Limiter: fastLimiter()}

	_, err := ExecuteSendBulkQR(context.Background(), SendBulkQRInput{}, deps)
	if err == nil {
		t.Error("a member that cannot be flagged after a send must abort the run")
	}
}

func TestExecuteSendBulkQR_EmptyQueueReportsFinished(t *testing.T) {
	store := &mockBulkQRStore{members: map[string]memberDomain.Member{}}
	result, err := ExecuteSendBulkQR(context.Background(), SendBulkQRInput{},
		SendBulkQRDeps{MemberStore: store, Sender: email.NewNoopSender(), Limiter: fastLimiter()})
	if err != nil {
		t.Fatalf("ExecuteSendBulkQR: %v", err)
	}
	if !result.Finished {
		t.Error("empty queue must report Finished=true")
	}
}

func TestExecuteSendBulkQR_CustomBatchSize(t *testing.T) {
	store := bulkStoreWithMembers(4)
	result, err := ExecuteSendBulkQR(context.Background(), SendBulkQRInput{BatchSize: 2},
		SendBulkQRDeps{MemberStore: store, Sender: email.NewNoopSender(), Limiter: fastLimiter()})
	if err != nil {
		t.Fatalf("ExecuteSendBulkQR: %v", err)
	}
	if result.Sent != 2 {
		t.Errorf("sent = %d, want the batch size 2", result.Sent)
	}
}
