package repository

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes attached to repository failures.
const (
	CodeStoreError         = "STORE_ERROR"
	CodeConfigurationError = "CONFIGURATION_ERROR"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when a unique index rejects an insert.
	ErrDuplicateUser = errors.New("user credentials already in use")
)

func storeError(operation string, err error) error {
	return oops.
		Code(CodeStoreError).
		In("repository").
		With("operation", operation).
		Wrap(err)
}

func configurationError(format string, args ...any) error {
	return oops.
		Code(CodeConfigurationError).
		In("repository").
		Errorf(format, args...)
}

// IsStoreError reports whether err is a document store failure.
func IsStoreError(err error) bool {
	return hasCode(err, CodeStoreError)
}

// IsConfigurationError reports whether err is a configuration failure.
func IsConfigurationError(err error) bool {
	return hasCode(err, CodeConfigurationError)
}

func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}

	return oopsErr.Code() == code
}
