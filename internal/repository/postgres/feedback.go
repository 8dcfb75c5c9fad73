package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/suppression-hub/internal/domain"
	"github.com/ignite/suppression-hub/internal/service/feedback"
)

// Constraint names from migrations/001_feedback.sql.
const (
	constraintEventMessageID   = "feedback_events_provider_message_id_key"
	constraintSuppressionEmail = "suppressions_email_normalized_key"
)

// suppressionUpsertSQL applies one suppression transition atomically. The
// three state-machine cases (absent, active, released) collapse into a
// single conflict-update: new rows start at count 1, existing rows get the
// count bumped, last_suppressed_at advanced, and any release cleared.
// first_suppressed_at is deliberately untouched on conflict.
const suppressionUpsertSQL = `
	INSERT INTO suppressions
		(id, email, email_normalized, reason, reason_detail, feedback_event_id,
		 first_suppressed_at, last_suppressed_at, suppression_count)
	VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
	ON CONFLICT (email_normalized) DO UPDATE SET
		reason = EXCLUDED.reason,
		reason_detail = EXCLUDED.reason_detail,
		feedback_event_id = EXCLUDED.feedback_event_id,
		last_suppressed_at = NOW(),
		suppression_count = suppressions.suppression_count + 1,
		released_at = NULL,
		release_detail = ''
`

// FeedbackRepo implements feedback.Repository against PostgreSQL.
type FeedbackRepo struct{ db *sql.DB }

// NewFeedbackRepo creates a Postgres-backed feedback repository.
func NewFeedbackRepo(db *sql.DB) *FeedbackRepo { return &FeedbackRepo{db: db} }

func (r *FeedbackRepo) EventExists(ctx context.Context, providerMessageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM feedback_events WHERE provider_message_id = $1)`,
		providerMessageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("event exists: %w", err)
	}
	return exists, nil
}

// StoreUnit persists one notification's unit in a single transaction.
// A uniqueness violation on the event insert is the race-path duplicate
// (another worker won between the existence check and here) and maps to
// feedback.ErrDuplicateEvent; everything else rolls the unit back whole.
func (r *FeedbackRepo) StoreUnit(ctx context.Context, unit *feedback.Unit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ev := unit.Event
	_, err = tx.ExecContext(ctx, `
		INSERT INTO feedback_events
			(id, notification_type, provider_message_id, feedback_id,
			 source_email, source_arn, topic_arn, raw_payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.ID, string(ev.NotificationType), ev.ProviderMessageID, ev.FeedbackID,
		ev.SourceEmail, ev.SourceARN, ev.TopicARN, ev.RawPayload, ev.ReceivedAt)
	if err != nil {
		if isUniqueViolation(err, constraintEventMessageID) {
			return feedback.ErrDuplicateEvent
		}
		if isTransient(err) {
			return feedback.ErrConflict
		}
		return fmt.Errorf("insert feedback event: %w", err)
	}

	for _, rec := range unit.Recipients {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO feedback_recipients
				(id, event_id, email, email_normalized, recipient_index,
				 bounce_type, bounce_subtype, action, status, diagnostic_code,
				 complaint_feedback_type, complaint_subtype, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, rec.ID, rec.EventID, rec.Email, rec.EmailNormalized, rec.RecipientIndex,
			string(rec.BounceType), rec.BounceSubType, rec.Action, rec.Status,
			rec.DiagnosticCode, rec.ComplaintFeedbackType, rec.ComplaintSubType,
			rec.Detail)
		if err != nil {
			return fmt.Errorf("insert feedback recipient: %w", err)
		}
	}

	for _, up := range unit.Suppressions {
		_, err = tx.ExecContext(ctx, suppressionUpsertSQL,
			newID(), up.Email, up.EmailNormalized, string(up.Reason), up.Detail,
			ev.ID)
		if err != nil {
			if isTransient(err) {
				return feedback.ErrConflict
			}
			return fmt.Errorf("upsert suppression: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isTransient(err) {
			return feedback.ErrConflict
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const eventColumns = `
	id, notification_type, provider_message_id, feedback_id,
	source_email, source_arn, topic_arn, raw_payload, received_at`

func (r *FeedbackRepo) GetEvent(ctx context.Context, id string) (*domain.FeedbackEvent, []domain.FeedbackRecipient, error) {
	var ev domain.FeedbackEvent
	err := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM feedback_events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.NotificationType, &ev.ProviderMessageID, &ev.FeedbackID,
		&ev.SourceEmail, &ev.SourceARN, &ev.TopicARN, &ev.RawPayload, &ev.ReceivedAt)
	if err == sql.ErrNoRows {
		return nil, nil, feedback.ErrEventNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get feedback event: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, email, email_normalized, recipient_index,
		       bounce_type, bounce_subtype, action, status, diagnostic_code,
		       complaint_feedback_type, complaint_subtype, detail
		FROM feedback_recipients
		WHERE event_id = $1
		ORDER BY recipient_index
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get feedback recipients: %w", err)
	}
	defer rows.Close()

	var recipients []domain.FeedbackRecipient
	for rows.Next() {
		var rec domain.FeedbackRecipient
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Email, &rec.EmailNormalized,
			&rec.RecipientIndex, &rec.BounceType, &rec.BounceSubType, &rec.Action,
			&rec.Status, &rec.DiagnosticCode, &rec.ComplaintFeedbackType,
			&rec.ComplaintSubType, &rec.Detail); err != nil {
			return nil, nil, fmt.Errorf("scan feedback recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}
	return &ev, recipients, rows.Err()
}

func (r *FeedbackRepo) ListEvents(ctx context.Context, limit, offset int) ([]domain.FeedbackEvent, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback_events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feedback events: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM feedback_events
		ORDER BY received_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback events: %w", err)
	}
	defer rows.Close()

	var out []domain.FeedbackEvent
	for rows.Next() {
		var ev domain.FeedbackEvent
		if err := rows.Scan(&ev.ID, &ev.NotificationType, &ev.ProviderMessageID,
			&ev.FeedbackID, &ev.SourceEmail, &ev.SourceARN, &ev.TopicARN,
			&ev.RawPayload, &ev.ReceivedAt); err != nil {
			return nil, 0, fmt.Errorf("scan feedback event: %w", err)
		}
		out = append(out, ev)
	}
	return out, total, rows.Err()
}
