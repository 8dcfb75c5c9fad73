package sns

import (
	"encoding/json"
	"fmt"
)

// Message types carried in the envelope's Type field.
const (
	TypeSubscriptionConfirmation = "SubscriptionConfirmation"
	TypeUnsubscribeConfirmation  = "UnsubscribeConfirmation"
	TypeNotification             = "Notification"
)

// Envelope is the outer SNS push-notification wrapper. For Notification
// messages the Message field is itself JSON (the SES payload); for
// confirmation messages it is human-readable text.
type Envelope struct {
	Type             string `json:"Type"`
	MessageID        string `json:"MessageId"`
	Token            string `json:"Token,omitempty"`
	TopicARN         string `json:"TopicArn"`
	Subject          string `json:"Subject,omitempty"`
	Message          string `json:"Message"`
	Timestamp        string `json:"Timestamp"`
	SignatureVersion string `json:"SignatureVersion"`
	Signature        string `json:"Signature"`
	SigningCertURL   string `json:"SigningCertURL"`
	SubscribeURL     string `json:"SubscribeURL,omitempty"`
	UnsubscribeURL   string `json:"UnsubscribeURL,omitempty"`
}

// ParseEnvelope decodes the raw request body into an Envelope.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" || env.MessageID == "" {
		return nil, fmt.Errorf("envelope missing Type or MessageId")
	}
	return &env, nil
}

// IsConfirmation reports whether the envelope is a subscription-lifecycle
// message rather than a notification.
func (e *Envelope) IsConfirmation() bool {
	return e.Type == TypeSubscriptionConfirmation || e.Type == TypeUnsubscribeConfirmation
}

// canonicalString rebuilds the newline-joined key/value string that SNS
// signed. Field order follows the published signing algorithm: keys in byte
// order, each emitted as "key\nvalue\n". Subject is included only when
// present, and only for Notification messages. Returns false if a field
// required for this message type is missing.
func (e *Envelope) canonicalString() (string, bool) {
	var pairs []string
	switch e.Type {
	case TypeSubscriptionConfirmation, TypeUnsubscribeConfirmation:
		if e.SubscribeURL == "" || e.Token == "" {
			return "", false
		}
		pairs = []string{
			"Message", e.Message,
			"MessageId", e.MessageID,
			"SubscribeURL", e.SubscribeURL,
			"Timestamp", e.Timestamp,
			"Token", e.Token,
			"TopicArn", e.TopicARN,
			"Type", e.Type,
		}
	case TypeNotification:
		pairs = []string{
			"Message", e.Message,
			"MessageId", e.MessageID,
		}
		if e.Subject != "" {
			pairs = append(pairs, "Subject", e.Subject)
		}
		pairs = append(pairs,
			"Timestamp", e.Timestamp,
			"TopicArn", e.TopicARN,
			"Type", e.Type,
		)
	default:
		return "", false
	}
	if e.Message == "" || e.Timestamp == "" || e.TopicARN == "" {
		return "", false
	}

	out := make([]byte, 0, 256)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, pairs[i]...)
		out = append(out, '\n')
		out = append(out, pairs[i+1]...)
		out = append(out, '\n')
	}
	return string(out), true
}
