package sync

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies engine failures for callers and the HTTP layer.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeBackendUnavailable ErrorCode = "backend_unavailable"
	CodeAIUnavailable      ErrorCode = "ai_unavailable"
)

// Error is the engine's error type. Every instance carries a human-readable
// message and, where one helps, a recovery suggestion for the UI layer.
type Error struct {
	Code       ErrorCode
	Message    string
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion}
}

func validationErr(message, suggestion string) *Error {
	return newError(CodeValidation, message, suggestion)
}

func unauthorizedErr(message string) *Error {
	return newError(CodeUnauthorized, message, "Sign in with an account that owns this resource.")
}

func notFoundErr(kind, id string) *Error {
	return newError(CodeNotFound, fmt.Sprintf("%s %s not found", kind, id), "Refresh and try again.")
}

func conflictErr(message string) *Error {
	return newError(CodeConflict, message, "Refresh the list and pick another job.")
}

func backendErr(err error) *Error {
	return &Error{
		Code:       CodeBackendUnavailable,
		Message:    "the backing store is unreachable",
		Suggestion: "Check your connection; cached data is shown until it recovers.",
		Err:        err,
	}
}

// AIUnavailable wraps a bottle count oracle failure. Exported because the
// HTTP layer raises it directly; every other code originates inside the
// engine.
func AIUnavailable(err error) *Error {
	return &Error{
		Code:       CodeAIUnavailable,
		Message:    "the bottle count service is unavailable",
		Suggestion: "Enter the bottle count manually to continue.",
		Err:        err,
	}
}

// CodeOf extracts the error code, defaulting to backend-unavailable for
// unclassified failures so callers never silently drop a user action.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeBackendUnavailable
}

// HTTPStatus maps an error code to a response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeAIUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}
