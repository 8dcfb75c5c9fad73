package suppression

import (
	"context"

	"github.com/ignite/suppression-hub/internal/domain"
)

// Repository defines the data access contract for the suppression list.
type Repository interface {
	// IsSuppressed reports whether the normalized email is actively
	// suppressed (present and not released).
	IsSuppressed(ctx context.Context, emailNormalized string) (bool, error)

	// GetByID returns a suppression row by surrogate id.
	// Returns ErrNotFound if it doesn't exist.
	GetByID(ctx context.Context, id string) (*domain.Suppression, error)

	// GetByEmail returns the suppression row for a normalized email,
	// active or released. Returns ErrNotFound if none exists.
	GetByEmail(ctx context.Context, emailNormalized string) (*domain.Suppression, error)

	// Upsert applies a suppression transition keyed on the normalized
	// email: create with count 1, or increment count, advance the
	// last-suppressed timestamp and clear any release. Used by both the
	// feedback processor path and manual operator suppression.
	Upsert(ctx context.Context, s *domain.Suppression) error

	// Release marks an active suppression released, storing the operator's
	// detail. Returns ErrNotFound if the row is absent or already released.
	Release(ctx context.Context, id, detail string) error

	// List returns suppression entries matching the filter plus the total.
	List(ctx context.Context, filter ListFilter) ([]domain.Suppression, int, error)

	// Stats returns aggregate counts for the deliverability dashboard.
	Stats(ctx context.Context) (*Stats, error)
}

// ListFilter controls pagination and filtering for suppression lists.
type ListFilter struct {
	Reason          string
	Search          string
	IncludeReleased bool
	Limit           int
	Offset          int
}

// Stats holds aggregate suppression counts.
type Stats struct {
	Total       int            `json:"total"`
	Active      int            `json:"active"`
	Released    int            `json:"released"`
	ByReason    map[string]int `json:"by_reason"`
	Last24Hours int            `json:"last_24_hours"`
}
