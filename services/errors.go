package services

import (
	"errors"
	"fmt"
)

// Error kinds. Controllers map these onto HTTP statuses; everything user
// correctable is surfaced verbatim, external failures become a generic 500.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
	ErrExternal      = errors.New("external service error")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func authorizationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func externalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrExternal, fmt.Sprintf(format, args...))
}

// Externalw wraps a repository or collaborator failure, preserving the cause.
func Externalw(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrExternal, op, err)
}
