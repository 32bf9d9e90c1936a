package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrValidation is returned when input is rejected before any write:
// missing required fields, unknown legislation id, malformed enum values.
var ErrValidation = errors.New("storage: validation failed")

// ErrConcurrency is returned when a write loses a race it cannot resolve
// internally (for example two callers allocating the same analysis version).
// Callers should retry with backoff; the conflict is never silently absorbed
// into a duplicate version or a lost update.
var ErrConcurrency = errors.New("storage: concurrent modification")

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally on a specific named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
