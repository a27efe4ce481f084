// Package backend defines the contract every backend adapter satisfies and
// the classified error type adapters raise when a call fails.
package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Machine-readable error codes shared across backend adapters.
const (
	// CodeWriteNotAllowed is returned when a statement fails the read-only
	// allow-list before any network call is attempted.
	CodeWriteNotAllowed = "WRITE_OPERATION_NOT_ALLOWED"
	// CodeInvalidIdentifier is returned when a caller-supplied name (a table,
	// a column) fails lexical checks before any call is attempted.
	CodeInvalidIdentifier = "INVALID_IDENTIFIER"
	// CodeConnectionFailed is returned when the backend is unreachable.
	CodeConnectionFailed = "CONNECTION_FAILED"
	// CodeNotFound is returned when the backend reports a missing entity.
	CodeNotFound = "NOT_FOUND"
	// CodeAccessDenied is returned for authentication/authorization faults.
	CodeAccessDenied = "ACCESS_DENIED"
	// CodeRateLimited is returned when the backend throttles the caller.
	CodeRateLimited = "RATE_LIMITED"
	// CodeUpstreamFailure is returned for other backend-reported failures.
	CodeUpstreamFailure = "UPSTREAM_FAILURE"
	// CodeDecodeFailure is returned when a backend response cannot be decoded.
	CodeDecodeFailure = "DECODE_FAILURE"
	// CodeUnexpected is the fallback for unclassified failures.
	CodeUnexpected = "UNEXPECTED"
)

// Error is a classified backend failure. It distinguishes backend-reported
// faults from transport faults and carries the backend's own error code when
// one is available. Messages must never contain credentials or connection
// strings.
type Error struct {
	Backend    string         `json:"backend"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"status_code,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if code := strings.TrimSpace(e.Code); code != "" {
		return fmt.Sprintf("%s: %s", code, msg)
	}
	return msg
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Tag renders the backend-identifying prefix used in envelope error text,
// e.g. "SQLite Error".
func (e *Error) Tag() string {
	name := strings.TrimSpace(e.Backend)
	if name == "" {
		name = "Backend"
	}
	return name + " Error"
}

// New builds a classified error for the named backend.
func New(backendName, code, message string) *Error {
	return &Error{
		Backend: backendName,
		Code:    cleanCode(code),
		Message: strings.TrimSpace(message),
	}
}

// Wrap classifies an underlying failure, keeping it available for errors.Is.
func Wrap(backendName, code string, cause error) *Error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return &Error{
		Backend: backendName,
		Code:    cleanCode(code),
		Message: message,
		Cause:   cause,
	}
}

// Connection classifies an unreachable-backend failure.
func Connection(backendName string, cause error) *Error {
	return Wrap(backendName, CodeConnectionFailed, cause)
}

// WithDetail attaches a per-call correlation detail (a query, a table name,
// a secret id) and returns the same error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e == nil {
		return nil
	}
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// From extracts a classified error when err carries one.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr, true
	}
	return nil, false
}

func cleanCode(code string) string {
	clean := strings.TrimSpace(code)
	if clean == "" {
		return CodeUnexpected
	}
	return clean
}
