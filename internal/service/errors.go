package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the stock engine. Callers match them with
// errors.Is; the handler layer maps each to an HTTP status.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("product not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// isDomainError reports whether err already carries one of the kinds above.
func isDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrPersistence)
}
