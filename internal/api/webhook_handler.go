package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/ignite/suppression-hub/internal/config"
	"github.com/ignite/suppression-hub/internal/pkg/httpretry"
	"github.com/ignite/suppression-hub/internal/pkg/httputil"
	"github.com/ignite/suppression-hub/internal/pkg/logger"
	"github.com/ignite/suppression-hub/internal/service/feedback"
	"github.com/ignite/suppression-hub/internal/sns"
)

// maxEnvelopeBytes bounds the request body read. SNS caps messages at
// 256KB; anything past 1MB is garbage.
const maxEnvelopeBytes = 1 << 20

// WebhookHandler receives SNS push deliveries carrying SES feedback
// notifications (bounces, complaints, deliveries) and subscription
// lifecycle messages.
//
// Status contract: 403 for unverifiable or disallowed envelopes, 200 for
// anything verified (including duplicates and permanently malformed inner
// payloads, which SNS would otherwise redeliver forever), 5xx only when
// persistence is unavailable so the provider retries later.
type WebhookHandler struct {
	cfg       config.WebhookConfig
	processor *feedback.Service
	verifier  *sns.Verifier
	confirmer httpretry.HTTPDoer
	snsHosts  *regexp.Regexp
}

// NewWebhookHandler creates the handler. The verifier carries the
// certificate fetcher and topic allow-list.
func NewWebhookHandler(cfg config.WebhookConfig, processor *feedback.Service, verifier *sns.Verifier) *WebhookHandler {
	pattern := cfg.CertHostPattern
	if pattern == "" {
		pattern = sns.DefaultCertHostPattern
	}
	return &WebhookHandler{
		cfg:       cfg,
		processor: processor,
		verifier:  verifier,
		confirmer: httpretry.NewRetryClient(nil, 2),
		snsHosts:  regexp.MustCompile(pattern),
	}
}

// HandleNotification is the webhook entry point.
//
//	POST /webhooks/sns
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Enabled {
		// Indistinguishable from an unknown route.
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		httputil.BadRequest(w, "unreadable body")
		return
	}

	env, err := sns.ParseEnvelope(body)
	if err != nil {
		logger.Warn("webhook: undecodable envelope", "error", err)
		httputil.BadRequest(w, "invalid envelope")
		return
	}

	if err := h.verifier.Verify(r.Context(), env); err != nil {
		logger.Warn("webhook: verification failed",
			"message_id", env.MessageID,
			"topic_arn", env.TopicARN,
			"type", env.Type,
			"error", err)
		httputil.Error(w, http.StatusForbidden, "forbidden")
		return
	}

	if env.IsConfirmation() {
		h.handleConfirmation(w, r, env)
		return
	}

	notification, err := sns.ParsePayload(env.Message)
	if err != nil {
		if errors.Is(err, sns.ErrPayloadMalformed) {
			// Redelivery will never fix a malformed payload. Acknowledge
			// so SNS stops retrying.
			logger.Warn("webhook: malformed payload ignored",
				"message_id", env.MessageID, "topic_arn", env.TopicARN)
			httputil.OK(w, map[string]string{"status": "ignored"})
			return
		}
		httputil.InternalError(w, err)
		return
	}

	result, err := h.processor.Process(r.Context(), feedback.Input{
		ProviderMessageID: env.MessageID,
		Type:              notification.Type,
		FeedbackID:        notification.FeedbackID,
		SourceEmail:       notification.Source,
		SourceARN:         notification.SourceARN,
		TopicARN:          env.TopicARN,
		RawPayload:        env.Message,
		Recipients:        notification.Recipients,
	})
	if err != nil {
		// Storage trouble. 503 makes SNS redeliver once we recover; the
		// idempotency check absorbs the replay.
		logger.Error("webhook: processing failed",
			"message_id", env.MessageID, "error", err)
		httputil.Error(w, http.StatusServiceUnavailable, "temporarily unavailable")
		return
	}

	if result.Duplicate {
		httputil.OK(w, map[string]string{"status": "duplicate"})
		return
	}

	httputil.OK(w, map[string]any{
		"status":     "processed",
		"event_id":   result.EventID,
		"suppressed": result.Suppressed,
	})
}

// handleConfirmation completes (or surfaces) an SNS subscription handshake.
// The envelope is already verified at this point.
func (h *WebhookHandler) handleConfirmation(w http.ResponseWriter, r *http.Request, env *sns.Envelope) {
	if env.Type == sns.TypeUnsubscribeConfirmation {
		logger.Info("webhook: unsubscribe confirmation received",
			"topic_arn", env.TopicARN, "message_id", env.MessageID)
		httputil.OK(w, map[string]string{"status": "acknowledged"})
		return
	}

	if !h.cfg.AutoConfirmSubscriptions {
		// Operator confirms out of band; the URL goes to the log, not the
		// response, to keep the token out of anything client-facing.
		logger.Info("webhook: subscription pending manual confirmation",
			"topic_arn", env.TopicARN, "message_id", env.MessageID)
		httputil.OK(w, map[string]string{"status": "pending_confirmation"})
		return
	}

	if err := h.confirmSubscription(r, env.SubscribeURL); err != nil {
		logger.Error("webhook: subscription auto-confirm failed",
			"topic_arn", env.TopicARN, "error", err)
		// SNS re-sends the confirmation if it goes unanswered.
		httputil.OK(w, map[string]string{"status": "confirmation_failed"})
		return
	}

	logger.Info("webhook: subscription confirmed", "topic_arn", env.TopicARN)
	httputil.OK(w, map[string]string{"status": "confirmed"})
}

// confirmSubscription GETs the SubscribeURL. The URL must live on the same
// trusted host set as the signing certificates; a verified envelope with a
// forged URL would otherwise turn us into a request proxy.
func (h *WebhookHandler) confirmSubscription(r *http.Request, subscribeURL string) error {
	u, err := url.Parse(subscribeURL)
	if err != nil {
		return err
	}
	if u.Scheme != "https" || !h.snsHosts.MatchString(u.Hostname()) {
		return errors.New("subscribe URL host not trusted: " + u.Hostname())
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, subscribeURL, nil)
	if err != nil {
		return err
	}
	resp, err := h.confirmer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxEnvelopeBytes))

	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected confirmation status " + resp.Status)
	}
	return nil
}
