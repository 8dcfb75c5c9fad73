// Package sns terminates the untrusted network boundary of the suppression
// hub. It decodes the outer SNS envelope, authenticates it against the
// signing certificate referenced by the message, and parses the inner SES
// payload into typed notifications.
//
// Nothing downstream of this package sees an unauthenticated byte: the
// webhook handler verifies first and parses second. Verification failures
// report false/error without panicking so a forged message can never leak
// verification internals through a stack trace.
package sns
