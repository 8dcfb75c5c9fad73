package sns

import (
	"strings"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	body := `{
		"Type": "Notification",
		"MessageId": "abc-123",
		"TopicArn": "arn:aws:sns:us-west-2:123:ses-feedback",
		"Message": "{\"notificationType\":\"Delivery\"}",
		"Timestamp": "2024-05-01T12:00:00.000Z",
		"SignatureVersion": "1",
		"Signature": "c2ln",
		"SigningCertURL": "https://sns.us-west-2.amazonaws.com/cert.pem"
	}`

	env, err := ParseEnvelope([]byte(body))
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.Type != TypeNotification {
		t.Errorf("Type = %s, want Notification", env.Type)
	}
	if env.MessageID != "abc-123" {
		t.Errorf("MessageID = %s", env.MessageID)
	}
	if env.IsConfirmation() {
		t.Error("Notification should not be a confirmation")
	}
}

func TestParseEnvelope_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"missing type", `{"MessageId": "abc"}`},
		{"missing message id", `{"Type": "Notification"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEnvelope([]byte(tt.body)); err == nil {
				t.Error("ParseEnvelope() expected error, got nil")
			}
		})
	}
}

func TestIsConfirmation(t *testing.T) {
	for _, typ := range []string{TypeSubscriptionConfirmation, TypeUnsubscribeConfirmation} {
		env := Envelope{Type: typ}
		if !env.IsConfirmation() {
			t.Errorf("%s should be a confirmation", typ)
		}
	}
}

func TestCanonicalString_Notification(t *testing.T) {
	env := Envelope{
		Type:      TypeNotification,
		MessageID: "m1",
		TopicARN:  "arn:topic",
		Message:   "hello",
		Timestamp: "2024-05-01T12:00:00.000Z",
	}

	got, ok := env.canonicalString()
	if !ok {
		t.Fatal("canonicalString() not ok")
	}
	want := "Message\nhello\nMessageId\nm1\nTimestamp\n2024-05-01T12:00:00.000Z\nTopicArn\narn:topic\nType\nNotification\n"
	if got != want {
		t.Errorf("canonicalString() = %q, want %q", got, want)
	}
}

func TestCanonicalString_NotificationWithSubject(t *testing.T) {
	env := Envelope{
		Type:      TypeNotification,
		MessageID: "m1",
		TopicARN:  "arn:topic",
		Subject:   "sub",
		Message:   "hello",
		Timestamp: "t",
	}

	got, ok := env.canonicalString()
	if !ok {
		t.Fatal("canonicalString() not ok")
	}
	if !strings.Contains(got, "MessageId\nm1\nSubject\nsub\nTimestamp\n") {
		t.Errorf("Subject must sit between MessageId and Timestamp: %q", got)
	}
}

func TestCanonicalString_Confirmation(t *testing.T) {
	env := Envelope{
		Type:         TypeSubscriptionConfirmation,
		MessageID:    "m2",
		TopicARN:     "arn:topic",
		Message:      "confirm me",
		Timestamp:    "t",
		Token:        "tok",
		SubscribeURL: "https://sns.us-west-2.amazonaws.com/subscribe",
	}

	got, ok := env.canonicalString()
	if !ok {
		t.Fatal("canonicalString() not ok")
	}
	want := "Message\nconfirm me\nMessageId\nm2\nSubscribeURL\nhttps://sns.us-west-2.amazonaws.com/subscribe\nTimestamp\nt\nToken\ntok\nTopicArn\narn:topic\nType\nSubscriptionConfirmation\n"
	if got != want {
		t.Errorf("canonicalString() = %q, want %q", got, want)
	}
}

func TestCanonicalString_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"unknown type", Envelope{Type: "Bogus", Message: "m", Timestamp: "t", TopicARN: "a"}},
		{"confirmation without token", Envelope{Type: TypeSubscriptionConfirmation, Message: "m", Timestamp: "t", TopicARN: "a", SubscribeURL: "u"}},
		{"notification without message", Envelope{Type: TypeNotification, Timestamp: "t", TopicARN: "a"}},
		{"notification without timestamp", Envelope{Type: TypeNotification, Message: "m", TopicARN: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.env.canonicalString(); ok {
				t.Error("canonicalString() should not be ok")
			}
		})
	}
}
