package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode categorizes application errors.
type ErrorCode string

const (
	ErrCodeValidationMissingField ErrorCode = "validation_missing_field"
	ErrCodeValidationInvalidValue ErrorCode = "validation_invalid_value"
	ErrCodeInternalDB             ErrorCode = "internal_database_error"
	ErrCodeUpstreamDelivery       ErrorCode = "upstream_delivery_failed"
)

// HTTPStatus maps an ErrorCode to its HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the error type returned across the service boundary.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status for this error.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidationError builds a validation AppError for a missing or invalid field.
func NewValidationError(code ErrorCode, field, message string) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf("%s: %s", field, message)}
}

// IsValidation reports whether err is a validation AppError.
func IsValidation(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return strings.HasPrefix(string(appErr.Code), "validation_")
}

// ErrDeliveryNotSupported is returned by transports that cannot delete messages.
var ErrDeliveryNotSupported = errors.New("delivery: operation not supported by transport")
