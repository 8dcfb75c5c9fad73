package domain

import "time"

// SuppressionReason enumerates why an email was suppressed.
type SuppressionReason string

const (
	ReasonHardBounce SuppressionReason = "hard_bounce"
	ReasonComplaint  SuppressionReason = "complaint"
	ReasonManual     SuppressionReason = "manual"
)

// ReasonForBounce maps an SES bounce classification to a suppression reason.
func ReasonForBounce(t BounceType) SuppressionReason {
	// Only permanent bounces reach the suppression path, so the bounce kind
	// is always hard. Kept as a function so the mapping has one home.
	_ = t
	return ReasonHardBounce
}

// Suppression is the durable record that blocks further sends to an address.
// EmailNormalized is globally unique: an address has at most one row,
// active or historical. The row cycles None -> Active -> Released -> Active;
// there is no terminal state.
type Suppression struct {
	ID              string            `json:"id" db:"id"`
	Email           string            `json:"email" db:"email"`
	EmailNormalized string            `json:"email_normalized" db:"email_normalized"`
	Reason          SuppressionReason `json:"reason" db:"reason"`
	ReasonDetail    string            `json:"reason_detail,omitempty" db:"reason_detail"`

	// FeedbackEventID is a weak back-reference to the triggering event,
	// informational only. Cleared to empty if the event is ever removed.
	FeedbackEventID string `json:"feedback_event_id,omitempty" db:"feedback_event_id"`

	FirstSuppressedAt time.Time  `json:"first_suppressed_at" db:"first_suppressed_at"`
	LastSuppressedAt  time.Time  `json:"last_suppressed_at" db:"last_suppressed_at"`
	SuppressionCount  int        `json:"suppression_count" db:"suppression_count"`
	ReleasedAt        *time.Time `json:"released_at,omitempty" db:"released_at"`
	ReleaseDetail     string     `json:"release_detail,omitempty" db:"release_detail"`
}

// Active reports whether the suppression currently blocks sends.
func (s Suppression) Active() bool {
	return s.ReleasedAt == nil
}
