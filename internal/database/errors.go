package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound means a referenced folder or photo does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate paths and invalid lifecycle transitions.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition is a lifecycle move the state machine forbids,
	// such as purging an active photo. It matches ErrConflict.
	ErrInvalidTransition = fmt.Errorf("%w: invalid state transition", ErrConflict)

	// ErrValidation means the input was rejected before reaching storage.
	ErrValidation = errors.New("validation failed")

	// ErrStorage wraps failures of the underlying database.
	ErrStorage = errors.New("storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func validationErr(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
