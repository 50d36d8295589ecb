package gateway

import (
	"errors"
	"fmt"

	"github.com/pranaypatel512/KiteMCP/pkg/kite"
)

// ErrorCode classifies a gateway failure for the wire envelope.
type ErrorCode string

const (
	CodeUnauthenticated    ErrorCode = "unauthenticated"
	CodeInvalidCredentials ErrorCode = "invalid_credentials"
	CodeUpstreamError      ErrorCode = "upstream_error"
	CodeProtocolError      ErrorCode = "protocol_error"
	CodeValidationError    ErrorCode = "validation_error"
)

// Error is the typed failure surfaced to the transport boundaries. Every
// brokerage-facing operation returns one of these instead of crashing the
// connection or request that triggered it.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// ErrUnauthenticated is returned before the adapter is contacted when no
// access token is held by the session.
var ErrUnauthenticated = &Error{
	Code:    CodeUnauthenticated,
	Message: "not authenticated, please login first",
}

func protocolError(msg string) *Error {
	return &Error{Code: CodeProtocolError, Message: msg}
}

func validationError(msg string) *Error {
	return &Error{Code: CodeValidationError, Message: msg}
}

// AsError extracts the typed gateway error from err, classifying anything
// unrecognized as an upstream failure.
func AsError(err error) *Error {
	return classify(err)
}

// classify maps adapter failures into the gateway taxonomy. Unknown errors
// become UpstreamError with the message passed through.
func classify(err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	if errors.Is(err, kite.ErrInvalidCredentials) {
		return &Error{Code: CodeInvalidCredentials, Message: err.Error(), cause: err}
	}
	if errors.Is(err, kite.ErrNotAuthorized) {
		return &Error{Code: CodeUnauthenticated, Message: ErrUnauthenticated.Message, cause: err}
	}
	return &Error{Code: CodeUpstreamError, Message: err.Error(), cause: err}
}
