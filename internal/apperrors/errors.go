package apperrors

import (
	"fmt"
	"net/http"
)

// Reason codes returned to clients alongside the HTTP status hint.
const (
	CodeDuplicateResource = "duplicate_resource"
	CodeNotFound          = "not_found"
	CodeAgeBelowLimit     = "age_below_limit"
	CodeInvalidEmail      = "invalid_email"
	CodeInvalidPhone      = "invalid_phone"
	CodeInvalidDate       = "invalid_date"
	CodeUnknownField      = "unknown_field"
	CodeInvalidRange      = "invalid_range"
)

// Error is a business failure carrying an HTTP status hint, a machine-readable
// reason code and a human-readable message.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error with an explicit status.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest builds a 400 validation/duplicate failure.
func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

// NotFound reports a missing resource, e.g. NotFound("User", "email", addr).
func NotFound(resource, field, value string) *Error {
	return New(http.StatusNotFound, CodeNotFound,
		fmt.Sprintf("%s not found with %s: %s", resource, field, value))
}
