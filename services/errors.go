package services

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no caller identity resolved for an operation
	// that requires one.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrNotFound covers both a missing record and a record owned by someone
	// else. The two cases are deliberately indistinguishable so callers
	// cannot probe for the existence of other users' records.
	ErrNotFound = errors.New("record not found")

	// ErrValidation marks rejected input.
	ErrValidation = errors.New("invalid input")
)

func validationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
