package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a unique constraint
	// other than the ones below.
	ErrConflict = errors.New("conflict")

	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrDuplicateUsername = errors.New("duplicate username")
)

// Constraint names from the migrations.
const (
	constraintUserEmail    = "users_email_key"
	constraintUserUsername = "users_username_key"
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

// translateError maps driver-level unique violations onto store errors.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case constraintUserEmail:
		return ErrDuplicateEmail
	case constraintUserUsername:
		return ErrDuplicateUsername
	default:
		return ErrConflict
	}
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
