package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
	// ErrTimeout means the response did not arrive in time. The connection
	// and the session are kept.
	ErrTimeout = errors.New("server did not answer in time")
)

// StatusError is a response the server answered with a non-200 status.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", int32(e.Status), e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == wire.StatusUnauthorized
}
