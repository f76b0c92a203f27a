package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError. The set is closed: handlers map each code
// to exactly one HTTP status.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeDuplicateUsername = "DUPLICATE_USERNAME"
	CodeDuplicateEmail    = "DUPLICATE_EMAIL"
	CodeInvalidUsername   = "INVALID_USERNAME"
	CodeInvalidEmail      = "INVALID_EMAIL"
	CodeWeakPassword      = "WEAK_PASSWORD"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL_ERROR"
)

// FieldErrors maps a request field to its validation messages.
type FieldErrors map[string][]string

// Add appends a message for the field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Empty reports whether no field has errors.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Detail string      `json:"detail"`
	Code   string      `json:"code,omitempty"`
	Errors FieldErrors `json:"errors,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Fields  FieldErrors
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing resource with a fixed message.
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: resource + " not found.",
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldError builds a validation error with per-field messages.
// The code defaults to VALIDATION_ERROR when empty.
func NewFieldError(code string, fields FieldErrors) *AppError {
	if code == "" {
		code = CodeValidation
	}
	return &AppError{
		Code:    code,
		Message: "Invalid input.",
		Fields:  fields,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or CodeInternal.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// RespondWithError writes a standardized error response. Internal causes are
// never written to the client.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Detail: appErr.Message,
			Code:   appErr.Code,
			Errors: appErr.Fields,
		}
	} else {
		response = ErrorResponse{
			Detail: "Internal server error",
			Code:   CodeInternal,
		}
	}

	return c.Status(status).JSON(response)
}
