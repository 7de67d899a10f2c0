// Package errors defines the typed error taxonomy shared by every service.
// Errors carry a stable machine code plus an optional human detail and an
// optional wrapped cause; identity is by code, so
// errors.Is(err, errors.ErrNotFound()) matches any not-found regardless of
// detail or cause.
package errors

import (
	"errors"
	"fmt"
)

type APIError struct {
	code    int
	message string
	detail  string
	cause   error
}

func (e *APIError) Error() string {
	s := e.message
	if e.detail != "" {
		s = s + ": " + e.detail
	}
	if e.cause != nil {
		s = s + ": " + e.cause.Error()
	}

	return s
}

func (e *APIError) Code() int {
	return e.code
}

func (e *APIError) Message() string {
	return e.message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func (e *APIError) Is(target error) bool {
	var t *APIError
	if errors.As(target, &t) {
		return t.code == e.code
	}

	return false
}

// SetDetail attaches a formatted detail string. The receiver is returned for
// chaining; factories hand out fresh values so this never mutates a shared
// sentinel.
func (e *APIError) SetDetail(format string, args ...interface{}) *APIError {
	e.detail = fmt.Sprintf(format, args...)

	return e
}

func (e *APIError) WithCause(err error) *APIError {
	e.cause = err

	return e
}

func def(code int, message string) func() *APIError {
	return func() *APIError {
		return &APIError{code: code, message: message}
	}
}

var (
	// ErrStoreFailure: transport or auth failure talking to the remote
	// store. Retryable at caller discretion; this layer never retries.
	ErrStoreFailure = def(70500, "Store Failure")
	// ErrNotFound: update against a document that does not exist.
	ErrNotFound = def(70404, "Not Found")
	// ErrBadPath: malformed document/collection path.
	ErrBadPath = def(70400, "Bad Path")
	// ErrUnauthorized: the operation requires an active identity.
	ErrUnauthorized = def(70401, "Unauthorized")
	// ErrBadSignIn: credentials did not resolve to a usable account.
	ErrBadSignIn = def(70403, "Bad Sign-In")
	// ErrUnsupported: the operation exists but is not switch-capable yet.
	ErrUnsupported = def(70405, "Unsupported Operation")
	// ErrValidationRejected: a write draft failed validation.
	ErrValidationRejected = def(70406, "Validation Rejected")
)
