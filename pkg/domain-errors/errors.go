// Package domainerrors defines the closed set of error codes that cross
// component boundaries, together with their fixed HTTP status mapping.
//
// Services and middleware return these instead of ad-hoc errors so the
// transport layer can translate them exhaustively. Store-level facts
// (not found, conflict) live in pkg/platform/sentinel and are wrapped into
// domain errors at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category. The set is closed: adding a code
// requires extending ToHTTPStatus so the transport mapping stays exhaustive.
type Code string

const (
	// Tenant resolution failures (see internal/authz/resolver).
	CodeTenantHeaderRequired Code = "TENANT_HEADER_REQUIRED"
	CodeTenantHeaderInvalid  Code = "TENANT_HEADER_INVALID"
	CodeTenantForbidden      Code = "TENANT_FORBIDDEN"
	CodeRoleForbidden        Code = "ROLE_FORBIDDEN"

	// Request shape and lifecycle failures.
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is the only error type handlers are allowed to surface.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and caller-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause is
// preserved for logging but never serialized to clients.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithDetails returns a copy carrying structured details safe to expose.
func (e *Error) WithDetails(details any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// HasCode reports whether err is (or wraps) a domain error with the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// AsDomain is errors.As specialized for *Error, for callers that need the
// full code/message/details triple rather than just the code.
func AsDomain(err error, target **Error) bool {
	return errors.As(err, target)
}

// CodeOf extracts the domain code from err, defaulting to CodeInternal so
// unclassified failures never leak anything weaker than a 500.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its transport status. The mapping is fixed:
// shape errors are 400, authorization errors are 403, and anything
// unclassified collapses to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeTenantHeaderRequired, CodeTenantHeaderInvalid, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTenantForbidden, CodeRoleForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
