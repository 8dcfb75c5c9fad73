// Package postgres implements the service repository interfaces against
// PostgreSQL using database/sql and lib/pq. Uniqueness is enforced by the
// schema (see migrations/), not application logic; these repositories
// translate constraint violations into the service layer's sentinels.
package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres error classes this package cares about.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == codeSerializationFailure ||
		string(pqErr.Code) == codeDeadlockDetected
}
