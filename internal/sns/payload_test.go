package sns

import (
	"errors"
	"testing"

	"github.com/ignite/suppression-hub/internal/domain"
)

const bounceMessage = `{
	"notificationType": "Bounce",
	"bounce": {
		"bounceType": "Permanent",
		"bounceSubType": "General",
		"feedbackId": "fb-1",
		"bouncedRecipients": [
			{"emailAddress": "First@Example.com", "action": "failed", "status": "5.1.1", "diagnosticCode": "smtp; 550 user unknown"},
			{"emailAddress": "second@example.com", "action": "failed", "status": "5.1.1"}
		]
	},
	"mail": {"messageId": "mail-1", "source": "sender@example.com", "sourceArn": "arn:aws:ses:us-west-2:123:identity/example.com"}
}`

func TestParsePayload_Bounce(t *testing.T) {
	n, err := ParsePayload(bounceMessage)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}

	if n.Type != domain.NotificationBounce {
		t.Errorf("Type = %s, want Bounce", n.Type)
	}
	if n.FeedbackID != "fb-1" {
		t.Errorf("FeedbackID = %s", n.FeedbackID)
	}
	if n.Source != "sender@example.com" {
		t.Errorf("Source = %s", n.Source)
	}
	if len(n.Recipients) != 2 {
		t.Fatalf("len(Recipients) = %d, want 2", len(n.Recipients))
	}

	first := n.Recipients[0]
	if first.Email != "First@Example.com" {
		t.Errorf("Email = %s", first.Email)
	}
	if first.EmailNormalized != "first@example.com" {
		t.Errorf("EmailNormalized = %s", first.EmailNormalized)
	}
	if first.RecipientIndex != 0 || n.Recipients[1].RecipientIndex != 1 {
		t.Error("recipient indexes must preserve payload order")
	}
	if first.BounceType != domain.BouncePermanent {
		t.Errorf("BounceType = %s", first.BounceType)
	}
	if first.DiagnosticCode != "smtp; 550 user unknown" {
		t.Errorf("DiagnosticCode = %s", first.DiagnosticCode)
	}
}

func TestParsePayload_Complaint(t *testing.T) {
	message := `{
		"notificationType": "Complaint",
		"complaint": {
			"feedbackId": "fb-2",
			"complaintFeedbackType": "abuse",
			"complainedRecipients": [{"emailAddress": "Angry@Example.com"}]
		},
		"mail": {"source": "sender@example.com"}
	}`

	n, err := ParsePayload(message)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if n.Type != domain.NotificationComplaint {
		t.Errorf("Type = %s, want Complaint", n.Type)
	}
	if len(n.Recipients) != 1 {
		t.Fatalf("len(Recipients) = %d, want 1", len(n.Recipients))
	}
	if n.Recipients[0].ComplaintFeedbackType != "abuse" {
		t.Errorf("ComplaintFeedbackType = %s", n.Recipients[0].ComplaintFeedbackType)
	}
	if n.Recipients[0].EmailNormalized != "angry@example.com" {
		t.Errorf("EmailNormalized = %s", n.Recipients[0].EmailNormalized)
	}
}

func TestParsePayload_Delivery(t *testing.T) {
	n, err := ParsePayload(`{"notificationType": "Delivery", "delivery": {"recipients": ["a@b.com"]}, "mail": {}}`)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if n.Type != domain.NotificationDelivery {
		t.Errorf("Type = %s, want Delivery", n.Type)
	}
	if len(n.Recipients) != 0 {
		t.Error("delivery notifications carry no suppression recipients")
	}
}

func TestParsePayload_EventTypeField(t *testing.T) {
	// Event-publishing payloads use eventType instead of notificationType.
	message := `{
		"eventType": "Bounce",
		"bounce": {"bounceType": "Transient", "bouncedRecipients": [{"emailAddress": "soft@example.com"}]},
		"mail": {}
	}`

	n, err := ParsePayload(message)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if n.Type != domain.NotificationBounce {
		t.Errorf("Type = %s, want Bounce", n.Type)
	}
	if n.Recipients[0].BounceType != domain.BounceTransient {
		t.Errorf("BounceType = %s, want Transient", n.Recipients[0].BounceType)
	}
}

func TestParsePayload_UnknownTypePassesThrough(t *testing.T) {
	n, err := ParsePayload(`{"notificationType": "Rendering Failure", "mail": {"source": "s@e.com"}}`)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if n.Type != domain.NotificationUnknown {
		t.Errorf("Type = %s, want Unknown", n.Type)
	}
}

func TestParsePayload_Malformed(t *testing.T) {
	_, err := ParsePayload(`this is not json`)
	if !errors.Is(err, ErrPayloadMalformed) {
		t.Errorf("ParsePayload() error = %v, want ErrPayloadMalformed", err)
	}
}
