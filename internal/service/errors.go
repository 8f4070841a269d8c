package service

import (
	"errors"
	"net/http"
)

// Kind classifies gate failures. Each kind maps to exactly one HTTP status
// at the API boundary.
type Kind string

const (
	// KindAuthentication means the bearer token was missing or could not be
	// resolved to a principal.
	KindAuthentication Kind = "authentication"

	// KindAuthorization means the caller's role was insufficient, or an
	// invariant on the protected owner identity was violated.
	KindAuthorization Kind = "authorization"

	// KindValidation means a request field was missing or invalid.
	KindValidation Kind = "validation"

	// KindNotFound means the target principal does not exist.
	KindNotFound Kind = "not_found"

	// KindStore wraps a failure reported by the identity store.
	KindStore Kind = "store"
)

// Error is a gate failure carrying the violated-rule message shown to API
// consumers and the kind that determines its HTTP status.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns the user-visible message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorStatus maps any error to an HTTP status and user-visible message.
// Errors outside the gate taxonomy surface as a generic internal error.
func ErrorStatus(err error) (int, string) {
	var gateErr *Error
	if errors.As(err, &gateErr) {
		return gateErr.Status(), gateErr.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

func authenticationError(message string, cause error) *Error {
	return &Error{Kind: KindAuthentication, Message: message, Err: cause}
}

func authorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func notFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func storeError(message string, cause error) *Error {
	return &Error{Kind: KindStore, Message: message, Err: cause}
}
