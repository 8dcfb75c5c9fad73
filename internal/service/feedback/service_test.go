package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/ignite/suppression-hub/internal/domain"
)

// mockRepo records stored units and simulates duplicate/conflict paths.
type mockRepo struct {
	existing  map[string]bool
	stored    []*Unit
	storeErrs []error // popped per StoreUnit call
	existsErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{existing: make(map[string]bool)}
}

func (m *mockRepo) EventExists(_ context.Context, providerMessageID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.existing[providerMessageID], nil
}

func (m *mockRepo) StoreUnit(_ context.Context, unit *Unit) error {
	if len(m.storeErrs) > 0 {
		err := m.storeErrs[0]
		m.storeErrs = m.storeErrs[1:]
		if err != nil {
			return err
		}
	}
	m.stored = append(m.stored, unit)
	m.existing[unit.Event.ProviderMessageID] = true
	return nil
}

func (m *mockRepo) GetEvent(_ context.Context, id string) (*domain.FeedbackEvent, []domain.FeedbackRecipient, error) {
	for _, u := range m.stored {
		if u.Event.ID == id {
			return &u.Event, u.Recipients, nil
		}
	}
	return nil, nil, ErrEventNotFound
}

func (m *mockRepo) ListEvents(_ context.Context, limit, offset int) ([]domain.FeedbackEvent, int, error) {
	var out []domain.FeedbackEvent
	for _, u := range m.stored {
		out = append(out, u.Event)
	}
	return out, len(out), nil
}

// recordingSink captures sink notifications.
type recordingSink struct {
	calls []string
}

func (r *recordingSink) Suppressed(_ context.Context, _, normalized string, _ domain.SuppressionReason) {
	r.calls = append(r.calls, normalized)
}

func hardBounceInput(msgID string, emails ...string) Input {
	in := Input{
		ProviderMessageID: msgID,
		Type:              domain.NotificationBounce,
		TopicARN:          "arn:aws:sns:us-west-2:123:ses-feedback",
		RawPayload:        `{"notificationType":"Bounce"}`,
	}
	for _, e := range emails {
		in.Recipients = append(in.Recipients, domain.FeedbackRecipient{
			Email:      e,
			BounceType: domain.BouncePermanent,
		})
	}
	return in
}

func TestProcess_HardBounceSuppresses(t *testing.T) {
	repo := newMockRepo()
	sink := &recordingSink{}
	svc := NewService(repo, sink)

	result, err := svc.Process(context.Background(), hardBounceInput("msg-1", "User@Example.com"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Duplicate {
		t.Error("first delivery must not be a duplicate")
	}
	if result.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", result.Suppressed)
	}

	if len(repo.stored) != 1 {
		t.Fatalf("stored %d units, want 1", len(repo.stored))
	}
	unit := repo.stored[0]
	if len(unit.Suppressions) != 1 {
		t.Fatalf("unit has %d suppressions, want 1", len(unit.Suppressions))
	}
	up := unit.Suppressions[0]
	if up.EmailNormalized != "user@example.com" {
		t.Errorf("EmailNormalized = %s", up.EmailNormalized)
	}
	if up.Reason != domain.ReasonHardBounce {
		t.Errorf("Reason = %s, want hard_bounce", up.Reason)
	}
	if len(sink.calls) != 1 || sink.calls[0] != "user@example.com" {
		t.Errorf("sink calls = %v", sink.calls)
	}
}

func TestProcess_DuplicateShortCircuits(t *testing.T) {
	repo := newMockRepo()
	sink := &recordingSink{}
	svc := NewService(repo, sink)

	in := hardBounceInput("msg-1", "user@example.com")
	if _, err := svc.Process(context.Background(), in); err != nil {
		t.Fatalf("first Process() error = %v", err)
	}

	result, err := svc.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("second Process() error = %v", err)
	}
	if !result.Duplicate {
		t.Error("redelivery must report Duplicate")
	}
	if len(repo.stored) != 1 {
		t.Errorf("stored %d units, want 1 (no double insert)", len(repo.stored))
	}
	if len(sink.calls) != 1 {
		t.Errorf("sink fired %d times, want 1 (no duplicate fan-out)", len(sink.calls))
	}
}

func TestProcess_RacePathDuplicate(t *testing.T) {
	// EventExists says no, but the insert hits the uniqueness constraint:
	// another worker won the race. Must surface as a duplicate, not an error.
	repo := newMockRepo()
	repo.storeErrs = []error{ErrDuplicateEvent}
	svc := NewService(repo)

	result, err := svc.Process(context.Background(), hardBounceInput("msg-1", "user@example.com"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !result.Duplicate {
		t.Error("constraint-violation path must report Duplicate")
	}
}

func TestProcess_TransientConflictRetriesOnce(t *testing.T) {
	repo := newMockRepo()
	repo.storeErrs = []error{ErrConflict}
	svc := NewService(repo)

	result, err := svc.Process(context.Background(), hardBounceInput("msg-1", "user@example.com"))
	if err != nil {
		t.Fatalf("Process() after retry error = %v", err)
	}
	if result.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", result.Suppressed)
	}
	if len(repo.stored) != 1 {
		t.Errorf("stored %d units, want 1", len(repo.stored))
	}
}

func TestProcess_PersistentConflictFails(t *testing.T) {
	repo := newMockRepo()
	repo.storeErrs = []error{ErrConflict, ErrConflict}
	svc := NewService(repo)

	if _, err := svc.Process(context.Background(), hardBounceInput("msg-1", "user@example.com")); err == nil {
		t.Error("two consecutive conflicts must fail the request")
	}
}

func TestProcess_PersistenceFailure(t *testing.T) {
	repo := newMockRepo()
	repo.storeErrs = []error{errors.New("connection refused")}
	sink := &recordingSink{}
	svc := NewService(repo, sink)

	if _, err := svc.Process(context.Background(), hardBounceInput("msg-1", "user@example.com")); err == nil {
		t.Fatal("persistence failure must surface as an error")
	}
	if len(sink.calls) != 0 {
		t.Error("sinks must not fire when the unit did not commit")
	}
}

func TestProcess_SoftBounceDoesNotSuppress(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	in := Input{
		ProviderMessageID: "msg-soft",
		Type:              domain.NotificationBounce,
		Recipients: []domain.FeedbackRecipient{
			{Email: "soft@example.com", BounceType: domain.BounceTransient},
		},
	}
	result, err := svc.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Suppressed != 0 {
		t.Errorf("Suppressed = %d, want 0", result.Suppressed)
	}
	if len(repo.stored[0].Recipients) != 1 {
		t.Error("recipient row must still be recorded for audit")
	}
}

func TestProcess_ComplaintSuppresses(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	in := Input{
		ProviderMessageID: "msg-complaint",
		Type:              domain.NotificationComplaint,
		Recipients: []domain.FeedbackRecipient{
			{Email: "angry@example.com", ComplaintFeedbackType: "abuse", Detail: "abuse"},
		},
	}
	result, err := svc.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", result.Suppressed)
	}
	if repo.stored[0].Suppressions[0].Reason != domain.ReasonComplaint {
		t.Errorf("Reason = %s, want complaint", repo.stored[0].Suppressions[0].Reason)
	}
}

func TestProcess_DeliveryNeverSuppresses(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	result, err := svc.Process(context.Background(), Input{
		ProviderMessageID: "msg-delivery",
		Type:              domain.NotificationDelivery,
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Suppressed != 0 {
		t.Errorf("Suppressed = %d, want 0", result.Suppressed)
	}
}

func TestProcess_DedupesRecipientsPerEvent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	// Same address twice with different casing: two recipient rows, one
	// suppression transition.
	result, err := svc.Process(context.Background(),
		hardBounceInput("msg-dup", "user@example.com", "USER@Example.com"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", result.Suppressed)
	}
	unit := repo.stored[0]
	if len(unit.Recipients) != 2 {
		t.Errorf("recipients = %d, want 2", len(unit.Recipients))
	}
	if unit.Recipients[0].RecipientIndex != 0 || unit.Recipients[1].RecipientIndex != 1 {
		t.Error("recipient ordering must be preserved")
	}
}

func TestProcess_RequiresProviderMessageID(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.Process(context.Background(), Input{}); err == nil {
		t.Error("empty provider message id must be rejected")
	}
}

func TestListEvents_ClampsLimit(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	// Limits outside (0, 500] fall back to the default; just verify no
	// error and pass-through of stored events.
	for _, limit := range []int{-1, 0, 501} {
		if _, _, err := svc.ListEvents(context.Background(), limit, 0); err != nil {
			t.Errorf("ListEvents(limit=%d) error = %v", limit, err)
		}
	}
}
