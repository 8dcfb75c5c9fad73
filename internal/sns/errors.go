package sns

import "errors"

// Sentinel errors for envelope authentication and parsing.
var (
	// ErrUntrustedCertURL means the SigningCertURL points outside the
	// configured SNS certificate host pattern. This is the defense against
	// signature-stripping attacks that substitute an attacker-hosted cert.
	ErrUntrustedCertURL = errors.New("signing certificate URL is not a trusted SNS host")

	// ErrCertFetch covers network failures and malformed PEM when
	// retrieving the signing certificate.
	ErrCertFetch = errors.New("failed to fetch signing certificate")

	// ErrSignatureInvalid means the signature did not verify against the
	// canonical string, or a field required to build it was missing.
	ErrSignatureInvalid = errors.New("invalid message signature")

	// ErrTopicNotAllowed means topic validation is enabled and the message's
	// TopicArn is not on the allow-list. Fails closed regardless of
	// signature validity.
	ErrTopicNotAllowed = errors.New("topic ARN is not on the allow-list")

	// ErrPayloadMalformed means the inner SES JSON could not be decoded
	// into any recognized shape.
	ErrPayloadMalformed = errors.New("notification payload is malformed")
)
