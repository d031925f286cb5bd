// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrorStorageExhausted is returned when a collection reached its
	// configured capacity.
	ErrorStorageExhausted = errors.New("storage exhausted")

	// Session errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSession    = errors.New("no session")
)
