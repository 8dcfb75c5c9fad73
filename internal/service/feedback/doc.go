// Package feedback implements the notification processor, the stateful core
// of the suppression hub. Given a parsed, already-authenticated notification
// it persists the feedback event, fans out per-recipient detail rows, and
// drives suppression-list transitions, all as one transactional unit.
//
// The processor is idempotent under the provider's at-least-once delivery:
// redelivery of a provider message id is a successful no-op, enforced by a
// storage-layer uniqueness constraint rather than application state.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports net/http
// or database/sql directly.
package feedback
