package sns

import (
	"encoding/json"
	"fmt"

	"github.com/ignite/suppression-hub/internal/domain"
)

// Notification is the typed result of parsing an authenticated envelope's
// inner SES payload.
type Notification struct {
	Type       domain.NotificationType
	FeedbackID string
	Source     string
	SourceARN  string
	Recipients []domain.FeedbackRecipient
}

// sesPayload mirrors the SES notification JSON embedded in the envelope's
// Message field. SES event-publishing payloads use eventType where the older
// notification format uses notificationType; both are accepted.
type sesPayload struct {
	NotificationType string `json:"notificationType"`
	EventType        string `json:"eventType"`
	Mail             struct {
		MessageID   string   `json:"messageId"`
		Source      string   `json:"source"`
		SourceARN   string   `json:"sourceArn"`
		Destination []string `json:"destination"`
	} `json:"mail"`
	Bounce *struct {
		BounceType    string `json:"bounceType"`
		BounceSubType string `json:"bounceSubType"`
		FeedbackID    string `json:"feedbackId"`
		BouncedRecipients []struct {
			EmailAddress   string `json:"emailAddress"`
			Action         string `json:"action"`
			Status         string `json:"status"`
			DiagnosticCode string `json:"diagnosticCode"`
		} `json:"bouncedRecipients"`
	} `json:"bounce"`
	Complaint *struct {
		ComplaintFeedbackType string `json:"complaintFeedbackType"`
		ComplaintSubType      string `json:"complaintSubType"`
		FeedbackID            string `json:"feedbackId"`
		ComplainedRecipients  []struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"complainedRecipients"`
	} `json:"complaint"`
	Delivery *struct {
		Recipients []string `json:"recipients"`
	} `json:"delivery"`
}

// ParsePayload decodes the inner SES JSON of a Notification envelope.
// Unknown notification types parse into a generic Notification rather than
// failing, so processing never blocks on full provider-schema coverage.
// Returns ErrPayloadMalformed only when the body is not decodable at all.
func ParsePayload(message string) (*Notification, error) {
	var p sesPayload
	if err := json.Unmarshal([]byte(message), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadMalformed, err)
	}

	kind := p.NotificationType
	if kind == "" {
		kind = p.EventType
	}

	n := &Notification{
		Source:    p.Mail.Source,
		SourceARN: p.Mail.SourceARN,
	}

	switch {
	case kind == string(domain.NotificationBounce) && p.Bounce != nil:
		n.Type = domain.NotificationBounce
		n.FeedbackID = p.Bounce.FeedbackID
		for i, r := range p.Bounce.BouncedRecipients {
			n.Recipients = append(n.Recipients, domain.FeedbackRecipient{
				Email:           r.EmailAddress,
				EmailNormalized: domain.NormalizeEmail(r.EmailAddress),
				RecipientIndex:  i,
				BounceType:      domain.BounceType(p.Bounce.BounceType),
				BounceSubType:   p.Bounce.BounceSubType,
				Action:          r.Action,
				Status:          r.Status,
				DiagnosticCode:  r.DiagnosticCode,
				Detail:          r.DiagnosticCode,
			})
		}
	case kind == string(domain.NotificationComplaint) && p.Complaint != nil:
		n.Type = domain.NotificationComplaint
		n.FeedbackID = p.Complaint.FeedbackID
		for i, r := range p.Complaint.ComplainedRecipients {
			n.Recipients = append(n.Recipients, domain.FeedbackRecipient{
				Email:                 r.EmailAddress,
				EmailNormalized:       domain.NormalizeEmail(r.EmailAddress),
				RecipientIndex:        i,
				ComplaintFeedbackType: p.Complaint.ComplaintFeedbackType,
				ComplaintSubType:      p.Complaint.ComplaintSubType,
				Detail:                p.Complaint.ComplaintFeedbackType,
			})
		}
	case kind == string(domain.NotificationDelivery):
		n.Type = domain.NotificationDelivery
	default:
		// Unknown sub-type: keep the event for audit, suppress nothing.
		n.Type = domain.NotificationUnknown
	}

	return n, nil
}
