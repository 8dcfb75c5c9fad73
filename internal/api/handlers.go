package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/suppression-hub/internal/domain"
	"github.com/ignite/suppression-hub/internal/pkg/httputil"
	"github.com/ignite/suppression-hub/internal/service/feedback"
	"github.com/ignite/suppression-hub/internal/service/suppression"
)

// Handlers holds the operator API endpoints.
type Handlers struct {
	feedback    *feedback.Service
	suppression *suppression.Service
}

// NewHandlers creates the operator API handler set.
func NewHandlers(f *feedback.Service, s *suppression.Service) *Handlers {
	return &Handlers{feedback: f, suppression: s}
}

// -----------------------------------------------------------------------
// Suppressions
// -----------------------------------------------------------------------

// ListSuppressions returns suppression entries, newest transition first.
//
//	GET /api/suppressions?reason=&search=&include_released=&limit=&offset=
func (h *Handlers) ListSuppressions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := suppression.ListFilter{
		Reason:          q.Get("reason"),
		Search:          q.Get("search"),
		IncludeReleased: q.Get("include_released") == "true",
		Limit:           intParam(q.Get("limit"), 50),
		Offset:          intParam(q.Get("offset"), 0),
	}

	entries, total, err := h.suppression.List(r.Context(), filter)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"suppressions": entries,
		"total":        total,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

// CheckSuppression reports whether an address is actively suppressed.
// Intended for send-path callers gating outbound mail.
//
//	GET /api/suppressions/check?email=user@example.com
func (h *Handlers) CheckSuppression(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.BadRequest(w, "email query parameter is required")
		return
	}

	suppressed, err := h.suppression.IsSuppressed(r.Context(), email)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"email":      email,
		"suppressed": suppressed,
	})
}

// GetSuppression returns one suppression entry by id.
//
//	GET /api/suppressions/{id}
func (h *Handlers) GetSuppression(w http.ResponseWriter, r *http.Request) {
	entry, err := h.suppression.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, suppression.ErrNotFound) {
			httputil.NotFound(w, "suppression not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, entry)
}

type createSuppressionRequest struct {
	Email  string `json:"email"`
	Detail string `json:"detail"`
}

// CreateSuppression manually suppresses an address (reason "manual").
// Suppressing an already-active address increments its count.
//
//	POST /api/suppressions
func (h *Handlers) CreateSuppression(w http.ResponseWriter, r *http.Request) {
	var req createSuppressionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if domain.NormalizeEmail(req.Email) == "" {
		httputil.BadRequest(w, "email is required")
		return
	}

	entry, err := h.suppression.Suppress(r.Context(), req.Email, req.Detail)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, entry)
}

type releaseSuppressionRequest struct {
	Detail string `json:"detail"`
}

// ReleaseSuppression lifts an active suppression. Releasing an absent or
// already-released entry returns 404; history stays intact either way.
//
//	POST /api/suppressions/{id}/release
func (h *Handlers) ReleaseSuppression(w http.ResponseWriter, r *http.Request) {
	var req releaseSuppressionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	err := h.suppression.Release(r.Context(), chi.URLParam(r, "id"), req.Detail)
	if err != nil {
		if errors.Is(err, suppression.ErrNotFound) {
			httputil.NotFound(w, "suppression not found or already released")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]string{"status": "released"})
}

// GetSuppressionStats returns aggregate counts for the dashboard.
//
//	GET /api/suppressions/stats
func (h *Handlers) GetSuppressionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.suppression.GetStats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// -----------------------------------------------------------------------
// Feedback events
// -----------------------------------------------------------------------

// ListEvents returns stored feedback events, newest first.
//
//	GET /api/events?limit=&offset=
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intParam(q.Get("limit"), 50)
	offset := intParam(q.Get("offset"), 0)

	events, total, err := h.feedback.ListEvents(r.Context(), limit, offset)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetEvent returns one feedback event with its recipients.
//
//	GET /api/events/{id}
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, recipients, err := h.feedback.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, feedback.ErrEventNotFound) {
			httputil.NotFound(w, "event not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"event":      event,
		"recipients": recipients,
	})
}

// intParam parses a positive integer query value, falling back on def.
func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
