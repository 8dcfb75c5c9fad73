// Package suppression implements the suppression list service.
//
// This is the single source of truth for whether an email address should
// receive mail. Suppressions flow in from the feedback processor (hard
// bounces, complaints) and from manual operator actions; senders check
// membership before every dispatch, and operators release entries that
// should receive mail again. Released entries keep their history and are
// reactivated in place if a new qualifying event arrives.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports net/http
// or database/sql directly.
package suppression
