package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/suppression-hub/internal/domain"
	"github.com/ignite/suppression-hub/internal/service/suppression"
)

func newID() string { return uuid.New().String() }

const suppressionColumns = `
	id, email, email_normalized, reason, reason_detail,
	COALESCE(feedback_event_id::text, ''), first_suppressed_at, last_suppressed_at,
	suppression_count, released_at, release_detail`

// SuppressionRepo implements suppression.Repository against PostgreSQL.
type SuppressionRepo struct{ db *sql.DB }

// NewSuppressionRepo creates a Postgres-backed suppression repository.
func NewSuppressionRepo(db *sql.DB) *SuppressionRepo { return &SuppressionRepo{db: db} }

func (r *SuppressionRepo) IsSuppressed(ctx context.Context, emailNormalized string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM suppressions WHERE email_normalized = $1 AND released_at IS NULL)`,
		emailNormalized,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is suppressed: %w", err)
	}
	return exists, nil
}

func (r *SuppressionRepo) GetByID(ctx context.Context, id string) (*domain.Suppression, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+suppressionColumns+` FROM suppressions WHERE id = $1`, id)
	return scanSuppression(row)
}

func (r *SuppressionRepo) GetByEmail(ctx context.Context, emailNormalized string) (*domain.Suppression, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+suppressionColumns+` FROM suppressions WHERE email_normalized = $1`,
		emailNormalized)
	return scanSuppression(row)
}

// Upsert applies a suppression transition via the shared atomic upsert.
// No read-modify-write: the conflict update covers the active and released
// cases, so concurrent events for the same address serialize in the store.
func (r *SuppressionRepo) Upsert(ctx context.Context, s *domain.Suppression) error {
	if s.ID == "" {
		s.ID = newID()
	}
	var eventID interface{}
	if s.FeedbackEventID != "" {
		eventID = s.FeedbackEventID
	}
	_, err := r.db.ExecContext(ctx, suppressionUpsertSQL,
		s.ID, s.Email, s.EmailNormalized, string(s.Reason), s.ReasonDetail, eventID)
	if err != nil {
		return fmt.Errorf("upsert suppression: %w", err)
	}
	return nil
}

func (r *SuppressionRepo) Release(ctx context.Context, id, detail string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE suppressions
		SET released_at = NOW(), release_detail = $2
		WHERE id = $1 AND released_at IS NULL
	`, id, detail)
	if err != nil {
		return fmt.Errorf("release suppression: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return suppression.ErrNotFound
	}
	return nil
}

func (r *SuppressionRepo) List(ctx context.Context, f suppression.ListFilter) ([]domain.Suppression, int, error) {
	where := `WHERE ($1 = '' OR reason = $1)
		AND ($2 = '' OR email_normalized LIKE '%' || $2 || '%')
		AND ($3 OR released_at IS NULL)`

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM suppressions `+where,
		f.Reason, f.Search, f.IncludeReleased,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count suppressions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+suppressionColumns+`
		FROM suppressions `+where+`
		ORDER BY last_suppressed_at DESC
		LIMIT $4 OFFSET $5
	`, f.Reason, f.Search, f.IncludeReleased, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.Suppression
	for rows.Next() {
		s, err := scanSuppression(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

func (r *SuppressionRepo) Stats(ctx context.Context) (*suppression.Stats, error) {
	stats := &suppression.Stats{ByReason: make(map[string]int)}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE released_at IS NULL),
		       COUNT(*) FILTER (WHERE released_at IS NOT NULL),
		       COUNT(*) FILTER (WHERE last_suppressed_at > NOW() - INTERVAL '24 hours')
		FROM suppressions
	`).Scan(&stats.Total, &stats.Active, &stats.Released, &stats.Last24Hours)
	if err != nil {
		return nil, fmt.Errorf("suppression stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM suppressions GROUP BY reason`)
	if err != nil {
		return nil, fmt.Errorf("suppression stats by reason: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan reason count: %w", err)
		}
		stats.ByReason[reason] = n
	}
	return stats, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSuppression(row scanner) (*domain.Suppression, error) {
	var s domain.Suppression
	var releasedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.Email, &s.EmailNormalized, &s.Reason, &s.ReasonDetail,
		&s.FeedbackEventID, &s.FirstSuppressedAt, &s.LastSuppressedAt,
		&s.SuppressionCount, &releasedAt, &s.ReleaseDetail,
	)
	if err == sql.ErrNoRows {
		return nil, suppression.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan suppression: %w", err)
	}
	if releasedAt.Valid {
		t := releasedAt.Time
		s.ReleasedAt = &t
	}
	return &s, nil
}
