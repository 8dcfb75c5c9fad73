package domain

import (
	"strings"
	"time"
)

// NotificationType enumerates the SES notification kinds carried in an
// authenticated SNS message.
type NotificationType string

const (
	NotificationBounce    NotificationType = "Bounce"
	NotificationComplaint NotificationType = "Complaint"
	NotificationDelivery  NotificationType = "Delivery"
	// NotificationUnknown covers sub-types this service does not model yet.
	// Unknown events are persisted for audit but never drive suppressions.
	NotificationUnknown NotificationType = "Unknown"
)

// BounceType is the top-level SES bounce classification.
type BounceType string

const (
	BouncePermanent    BounceType = "Permanent"
	BounceTransient    BounceType = "Transient"
	BounceUndetermined BounceType = "Undetermined"
)

// FeedbackEvent is one authenticated notification received from the provider.
// Rows are insert-only: never mutated, never deleted (audit trail).
// ProviderMessageID is globally unique so provider redeliveries collapse
// onto a single row.
type FeedbackEvent struct {
	ID                string           `json:"id" db:"id"`
	NotificationType  NotificationType `json:"notification_type" db:"notification_type"`
	ProviderMessageID string           `json:"provider_message_id" db:"provider_message_id"`
	FeedbackID        string           `json:"feedback_id,omitempty" db:"feedback_id"`
	SourceEmail       string           `json:"source_email,omitempty" db:"source_email"`
	SourceARN         string           `json:"source_arn,omitempty" db:"source_arn"`
	TopicARN          string           `json:"topic_arn,omitempty" db:"topic_arn"`
	RawPayload        string           `json:"raw_payload" db:"raw_payload"`
	ReceivedAt        time.Time        `json:"received_at" db:"received_at"`
}

// FeedbackRecipient is one affected address within a FeedbackEvent. A single
// bounce or complaint may carry several recipients; RecipientIndex preserves
// the order they appeared in on the wire. Rows are owned by their event and
// only ever removed by cascade.
type FeedbackRecipient struct {
	ID              string `json:"id" db:"id"`
	EventID         string `json:"event_id" db:"event_id"`
	Email           string `json:"email" db:"email"`
	EmailNormalized string `json:"email_normalized" db:"email_normalized"`
	RecipientIndex  int    `json:"recipient_index" db:"recipient_index"`

	// Bounce details
	BounceType     BounceType `json:"bounce_type,omitempty" db:"bounce_type"`
	BounceSubType  string     `json:"bounce_subtype,omitempty" db:"bounce_subtype"`
	Action         string     `json:"action,omitempty" db:"action"`
	Status         string     `json:"status,omitempty" db:"status"`
	DiagnosticCode string     `json:"diagnostic_code,omitempty" db:"diagnostic_code"`

	// Complaint details
	ComplaintFeedbackType string `json:"complaint_feedback_type,omitempty" db:"complaint_feedback_type"`
	ComplaintSubType      string `json:"complaint_subtype,omitempty" db:"complaint_subtype"`

	Detail string `json:"detail,omitempty" db:"detail"`
}

// NormalizeEmail returns the canonical matching form of an address:
// lower-cased and whitespace-trimmed. Original casing is kept on the
// recipient row; all equality comparisons use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Suppresses reports whether this recipient's event should place the address
// on the suppression list. Permanent bounces and complaints suppress;
// transient and undetermined bounces, and deliveries, do not.
func (r FeedbackRecipient) Suppresses(t NotificationType) bool {
	switch t {
	case NotificationBounce:
		return r.BounceType == BouncePermanent
	case NotificationComplaint:
		return true
	default:
		return false
	}
}
