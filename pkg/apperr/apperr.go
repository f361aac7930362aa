// Package apperr defines the application error taxonomy and helpers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Validation: bad or missing input to an action.
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeMissingField     = "MISSING_FIELD"
	CodeInvalidInput     = "INVALID_INPUT"

	// Resource: referenced message/thread/folder absent.
	CodeNotFound = "NOT_FOUND"

	// Network: transport failure or provider 5xx.
	CodeNetworkError = "NETWORK_ERROR"

	// Permission: 401/403 from the provider, token invalid beyond refresh.
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeTokenExpired     = "TOKEN_EXPIRED"

	// State: a local mutation failed unexpectedly.
	CodeStateError = "STATE_ERROR"

	// Unknown: unclassified.
	CodeUnknown = "UNKNOWN"
)

// AppError is a structured application error.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the HTTP status code for the error.
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions

func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// Validation errors

func ValidationFailed(message string) *AppError {
	return &AppError{
		Code:    CodeValidationFailed,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf("invalid input for '%s': %s", field, reason),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Resource errors

func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Network errors

func Network(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeNetworkError,
		Message: fmt.Sprintf("network error: %s", operation),
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// Permission errors

func PermissionDenied(message string) *AppError {
	if message == "" {
		message = "permission denied"
	}
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func TokenExpired(err error) *AppError {
	return &AppError{
		Code:    CodeTokenExpired,
		Message: "session expired, re-authentication required",
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

// State errors

func State(message string) *AppError {
	return &AppError{
		Code:    CodeStateError,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// Unknown errors

func Unknown(err error) *AppError {
	return &AppError{
		Code:    CodeUnknown,
		Message: "unexpected error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Helper functions

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts any error to an AppError, classifying unknown ones.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unknown(err)
}

// IsCode reports whether err carries the given application error code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetHTTPStatus returns the HTTP status for an error, 500 when unclassified.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
