package feedback

import (
	"context"

	"github.com/ignite/suppression-hub/internal/domain"
)

// Unit is the transactional payload for one notification: the event row,
// its recipient fan-out, and the suppression transitions it implies.
type Unit struct {
	Event        domain.FeedbackEvent
	Recipients   []domain.FeedbackRecipient
	Suppressions []SuppressionUpsert
}

// SuppressionUpsert is one suppression transition computed by the service.
// The repository applies it atomically keyed on the normalized email:
// absent rows are created with count 1, existing rows get their count
// incremented, last-suppressed advanced, and any release cleared.
type SuppressionUpsert struct {
	Email           string
	EmailNormalized string
	Reason          domain.SuppressionReason
	Detail          string
}

// Repository defines the data access contract for feedback processing.
type Repository interface {
	// EventExists reports whether an event with this provider message id
	// has already been persisted (fast-path idempotency check).
	EventExists(ctx context.Context, providerMessageID string) (bool, error)

	// StoreUnit persists the unit in a single transaction: event insert,
	// recipient fan-out, suppression upserts. All-or-nothing: a failure
	// after the event insert rolls the whole unit back. Returns
	// ErrDuplicateEvent when the provider message id already exists
	// (uniqueness violation on insert, the race-path idempotency check).
	StoreUnit(ctx context.Context, unit *Unit) error

	// GetEvent returns one event with its recipient fan-out, for the audit
	// API. Returns ErrEventNotFound if the id is unknown.
	GetEvent(ctx context.Context, id string) (*domain.FeedbackEvent, []domain.FeedbackRecipient, error)

	// ListEvents returns events newest-first with the total count.
	ListEvents(ctx context.Context, limit, offset int) ([]domain.FeedbackEvent, int, error)
}
