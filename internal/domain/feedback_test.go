package domain

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@Example.COM", "user@example.com"},
		{"  User@Example.com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.input); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRecipientSuppresses(t *testing.T) {
	tests := []struct {
		name string
		rec  FeedbackRecipient
		typ  NotificationType
		want bool
	}{
		{"permanent bounce", FeedbackRecipient{BounceType: BouncePermanent}, NotificationBounce, true},
		{"transient bounce", FeedbackRecipient{BounceType: BounceTransient}, NotificationBounce, false},
		{"undetermined bounce", FeedbackRecipient{BounceType: BounceUndetermined}, NotificationBounce, false},
		{"complaint", FeedbackRecipient{}, NotificationComplaint, true},
		{"delivery", FeedbackRecipient{}, NotificationDelivery, false},
		{"unknown", FeedbackRecipient{}, NotificationUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Suppresses(tt.typ); got != tt.want {
				t.Errorf("Suppresses(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestSuppressionActive(t *testing.T) {
	s := Suppression{}
	if !s.Active() {
		t.Error("suppression with nil ReleasedAt should be active")
	}

	now := s.FirstSuppressedAt
	s.ReleasedAt = &now
	if s.Active() {
		t.Error("suppression with ReleasedAt set should not be active")
	}
}
