package ses

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ignite/suppression-hub/internal/domain"
	"github.com/ignite/suppression-hub/internal/pkg/distlock"
	"github.com/ignite/suppression-hub/internal/pkg/logger"
	"github.com/ignite/suppression-hub/internal/service/suppression"
)

// LocalStore is the slice of the suppression repository the reconciler
// needs: row lookup in any state and the shared upsert transition.
type LocalStore interface {
	GetByEmail(ctx context.Context, emailNormalized string) (*domain.Suppression, error)
	Upsert(ctx context.Context, s *domain.Suppression) error
}

// Mirror pushes local suppression transitions to the SES account-level list
// and periodically reconciles the account list back into the local store.
// It implements feedback.SuppressionSink and suppression.ReleaseSink.
type Mirror struct {
	client   *Client
	store    LocalStore
	interval time.Duration
	timeout  time.Duration
	lock     distlock.DistLock

	mu        sync.RWMutex
	isRunning bool
	lastSync  time.Time
}

// NewMirror creates a mirror. interval controls the reconciliation loop.
func NewMirror(client *Client, store LocalStore, interval, timeout time.Duration) *Mirror {
	if interval <= 0 {
		interval = time.Hour
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Mirror{client: client, store: store, interval: interval, timeout: timeout}
}

// WithLock makes reconcile passes mutually exclusive across instances.
// Without a lock every replica reconciles; the upserts are idempotent, so
// that is wasteful rather than wrong.
func (m *Mirror) WithLock(lock distlock.DistLock) *Mirror {
	m.lock = lock
	return m
}

// Suppressed pushes a fresh suppression to the account list. Runs off the
// webhook path: the provider API can be slow or down, and the reconciler
// will catch anything that slips through.
func (m *Mirror) Suppressed(_ context.Context, email, _ string, reason domain.SuppressionReason) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.client.Suppress(ctx, email, reason); err != nil {
			logger.Warn("ses mirror: account suppression failed",
				"email", email, "error", err)
		}
	}()
}

// Released removes an address from the account list after an operator
// release.
func (m *Mirror) Released(_ context.Context, emailNormalized string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.client.Unsuppress(ctx, emailNormalized); err != nil {
			logger.Warn("ses mirror: account release failed",
				"email", emailNormalized, "error", err)
		}
	}()
}

// Start begins the reconciliation loop and blocks until ctx is done.
func (m *Mirror) Start(ctx context.Context) {
	m.mu.Lock()
	m.isRunning = true
	m.mu.Unlock()

	logger.Info("ses mirror: starting reconciler", "interval", m.interval.String())

	// Initial pass
	m.reconcile(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("ses mirror: stopping reconciler")
			m.mu.Lock()
			m.isRunning = false
			m.mu.Unlock()
			return
		case <-ticker.C:
			m.reconcile(ctx)
		}
	}
}

// IsRunning reports whether the reconciliation loop is active.
func (m *Mirror) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}

// reconcile walks the account-level list and creates rows for addresses the
// local store has never seen. The account list only ever gains hard-bounce
// and complaint entries, so every remote entry qualifies locally.
func (m *Mirror) reconcile(ctx context.Context) {
	if m.lock != nil {
		acquired, err := m.lock.Acquire(ctx)
		if err != nil {
			logger.Warn("ses mirror: reconcile lock error", "error", err)
			return
		}
		if !acquired {
			logger.Debug("ses mirror: reconcile held by another instance")
			return
		}
		defer m.lock.Release(ctx)
	}

	start := time.Now()

	remote, err := m.client.ListSuppressed(ctx)
	if err != nil {
		logger.Warn("ses mirror: reconcile list failed", "error", err)
		return
	}

	var added int
	for _, d := range remote {
		normalized := domain.NormalizeEmail(d.Email)
		// Only rows with no local history at all are created. A released
		// row also comes back from the lookup and is left alone: clearing
		// its release here would undo an operator action without a new
		// qualifying event.
		_, err := m.store.GetByEmail(ctx, normalized)
		if err == nil {
			continue
		}
		if !errors.Is(err, suppression.ErrNotFound) {
			logger.Warn("ses mirror: reconcile lookup failed",
				"email", normalized, "error", err)
			continue
		}
		err = m.store.Upsert(ctx, &domain.Suppression{
			Email:           d.Email,
			EmailNormalized: normalized,
			Reason:          d.Reason,
			ReasonDetail:    "ses account-level reconciliation",
		})
		if err != nil {
			logger.Warn("ses mirror: reconcile upsert failed",
				"email", normalized, "error", err)
			continue
		}
		added++
	}

	m.mu.Lock()
	m.lastSync = time.Now()
	m.mu.Unlock()

	logger.Info("ses mirror: reconcile complete",
		"remote_entries", len(remote), "added_locally", added,
		"elapsed", time.Since(start).String())
}
