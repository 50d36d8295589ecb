package kite

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned when the token exchange is rejected
// upstream or the request token is empty.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNotAuthorized is returned when a data call is made without an access
// token set on the client.
var ErrNotAuthorized = errors.New("no access token set")

// APIError is a non-2xx or error-status response from the brokerage API.
type APIError struct {
	Status    int
	ErrorType string
	Message   string
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("kite: %s (%s)", e.Message, e.ErrorType)
	}
	return fmt.Sprintf("kite: %s (HTTP %d)", e.Message, e.Status)
}
