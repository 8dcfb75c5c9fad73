package suppression

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/suppression-hub/internal/domain"
)

// MembershipCache fronts IsSuppressed lookups. Implementations are nil-safe
// from the service's perspective: a nil cache means straight repository
// reads.
type MembershipCache interface {
	// Get returns (suppressed, hit).
	Get(ctx context.Context, emailNormalized string) (bool, bool)
	Set(ctx context.Context, emailNormalized string, suppressed bool)
	Invalidate(ctx context.Context, emailNormalized string)
}

// ReleaseSink is notified after a release has committed, so external state
// (SES account suppression list) can follow. Sink failures are the sink's
// problem; a release never fails on one.
type ReleaseSink interface {
	Released(ctx context.Context, emailNormalized string)
}

// Service implements suppression business logic. Safe for concurrent use.
type Service struct {
	repo  Repository
	cache MembershipCache
	sinks []ReleaseSink
}

// NewService creates a suppression service backed by the given repository.
// cache may be nil.
func NewService(repo Repository, cache MembershipCache, sinks ...ReleaseSink) *Service {
	return &Service{repo: repo, cache: cache, sinks: sinks}
}

// IsSuppressed checks whether an email address should be blocked from
// sending, consulting the membership cache first.
func (s *Service) IsSuppressed(ctx context.Context, email string) (bool, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return false, fmt.Errorf("email is required")
	}

	if s.cache != nil {
		if suppressed, hit := s.cache.Get(ctx, normalized); hit {
			return suppressed, nil
		}
	}

	suppressed, err := s.repo.IsSuppressed(ctx, normalized)
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, normalized, suppressed)
	}
	return suppressed, nil
}

// Suppress adds an email manually (operator action). Reuses the same upsert
// transition as the feedback path: an existing row gets its count bumped and
// any release cleared.
func (s *Service) Suppress(ctx context.Context, email, detail string) (*domain.Suppression, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return nil, fmt.Errorf("email is required")
	}

	entry := &domain.Suppression{
		ID:               uuid.New().String(),
		Email:            email,
		EmailNormalized:  normalized,
		Reason:           domain.ReasonManual,
		ReasonDetail:     detail,
		SuppressionCount: 1,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, normalized)
	}
	return s.repo.GetByEmail(ctx, normalized)
}

// Release clears a suppression by id, keeping its history. Idempotent:
// releasing a missing or already-released row returns ErrNotFound, which
// callers surface as "nothing to do" rather than a failure.
func (s *Service) Release(ctx context.Context, id, detail string) error {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Release(ctx, id, detail); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, entry.EmailNormalized)
	}
	for _, sink := range s.sinks {
		sink.Released(ctx, entry.EmailNormalized)
	}
	return nil
}

// Get returns a suppression row by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Suppression, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns suppression entries matching the given filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]domain.Suppression, int, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// GetStats computes suppression statistics for the dashboard.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}
