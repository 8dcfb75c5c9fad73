package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/suppression-hub/internal/domain"
	"github.com/ignite/suppression-hub/internal/pkg/logger"
)

// Input is one parsed, authenticated notification ready for processing.
type Input struct {
	ProviderMessageID string
	Type              domain.NotificationType
	FeedbackID        string
	SourceEmail       string
	SourceARN         string
	TopicARN          string
	RawPayload        string
	Recipients        []domain.FeedbackRecipient
}

// Result reports what processing did.
type Result struct {
	Duplicate  bool
	EventID    string
	Suppressed int
}

// SuppressionSink is notified after a suppression transition has committed.
// Implementations (cache invalidation, SES account mirror) handle their own
// failures; a sink can never fail event processing.
type SuppressionSink interface {
	Suppressed(ctx context.Context, email, normalized string, reason domain.SuppressionReason)
}

// Service is the notification processor. Safe for concurrent use: all state
// lives in the repository, and the storage layer's uniqueness constraints
// arbitrate races between concurrent deliveries.
type Service struct {
	repo  Repository
	sinks []SuppressionSink
	now   func() time.Time
}

// NewService creates a processor backed by the given repository.
func NewService(repo Repository, sinks ...SuppressionSink) *Service {
	return &Service{repo: repo, sinks: sinks, now: time.Now}
}

// Process runs the transactional unit for one notification: idempotency
// check, event persistence, recipient fan-out, suppression transitions.
// Redelivered messages return Result.Duplicate without re-processing.
func (s *Service) Process(ctx context.Context, in Input) (Result, error) {
	if in.ProviderMessageID == "" {
		return Result{}, fmt.Errorf("provider message id is required")
	}

	exists, err := s.repo.EventExists(ctx, in.ProviderMessageID)
	if err != nil {
		return Result{}, fmt.Errorf("idempotency check: %w", err)
	}
	if exists {
		logger.Debug("feedback: duplicate delivery short-circuited",
			"provider_message_id", in.ProviderMessageID)
		return Result{Duplicate: true}, nil
	}

	unit := s.buildUnit(in)

	// The window between EventExists and the insert is the only race; the
	// constraint violation surfaces as ErrDuplicateEvent, and transient
	// conflicts get a single retry.
	err = s.repo.StoreUnit(ctx, unit)
	if errors.Is(err, ErrConflict) {
		err = s.repo.StoreUnit(ctx, unit)
	}
	if errors.Is(err, ErrDuplicateEvent) {
		return Result{Duplicate: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("store feedback unit: %w", err)
	}

	for _, up := range unit.Suppressions {
		for _, sink := range s.sinks {
			sink.Suppressed(ctx, up.Email, up.EmailNormalized, up.Reason)
		}
	}

	logger.Info("feedback: notification processed",
		"provider_message_id", in.ProviderMessageID,
		"type", string(in.Type),
		"recipients", len(unit.Recipients),
		"suppressed", len(unit.Suppressions))

	return Result{EventID: unit.Event.ID, Suppressed: len(unit.Suppressions)}, nil
}

// GetEvent returns one persisted event with its recipients (audit API).
func (s *Service) GetEvent(ctx context.Context, id string) (*domain.FeedbackEvent, []domain.FeedbackRecipient, error) {
	return s.repo.GetEvent(ctx, id)
}

// ListEvents returns persisted events newest-first.
func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]domain.FeedbackEvent, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListEvents(ctx, limit, offset)
}

// buildUnit turns the input into the transactional payload: ids assigned,
// ordering preserved, suppression transitions computed. Delivery events and
// transient bounces produce no suppressions.
func (s *Service) buildUnit(in Input) *Unit {
	eventID := uuid.New().String()
	unit := &Unit{
		Event: domain.FeedbackEvent{
			ID:                eventID,
			NotificationType:  in.Type,
			ProviderMessageID: in.ProviderMessageID,
			FeedbackID:        in.FeedbackID,
			SourceEmail:       in.SourceEmail,
			SourceARN:         in.SourceARN,
			TopicARN:          in.TopicARN,
			RawPayload:        in.RawPayload,
			ReceivedAt:        s.now().UTC(),
		},
	}

	seen := make(map[string]struct{})
	for i, r := range in.Recipients {
		r.ID = uuid.New().String()
		r.EventID = eventID
		r.RecipientIndex = i
		if r.EmailNormalized == "" {
			r.EmailNormalized = domain.NormalizeEmail(r.Email)
		}
		unit.Recipients = append(unit.Recipients, r)

		if !r.Suppresses(in.Type) {
			continue
		}
		// One transition per address per event, even if the provider
		// lists a recipient twice.
		if _, dup := seen[r.EmailNormalized]; dup {
			continue
		}
		seen[r.EmailNormalized] = struct{}{}

		reason := domain.ReasonComplaint
		if in.Type == domain.NotificationBounce {
			reason = domain.ReasonForBounce(r.BounceType)
		}
		unit.Suppressions = append(unit.Suppressions, SuppressionUpsert{
			Email:           r.Email,
			EmailNormalized: r.EmailNormalized,
			Reason:          reason,
			Detail:          r.Detail,
		})
	}

	return unit
}
