// Package apperror defines the error taxonomy shared by services and HTTP handlers.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUpstream        = errors.New("upstream generation failure")
	ErrRateLimited     = errors.New("rate limited")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError carries a classification (Err), a user-facing message and
// optional field-level details.
type AppError struct {
	Err     error
	Message string
	Details []FieldError
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Unauthenticated() *AppError {
	return &AppError{Err: ErrUnauthenticated, Message: "Unauthorized"}
}

func QuotaExceeded(limit int) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: fmt.Sprintf("You have reached your limit of %d letter generations. Please upgrade your plan to generate more letters.", limit),
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func Validation(message string, details ...FieldError) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Details: details,
	}
}

// ValidationField is shorthand for a single-field validation failure.
func ValidationField(field, message string) *AppError {
	return Validation(message, FieldError{Field: field, Message: message})
}

// Upstream wraps a failure of the text generation dependency. The cause stays
// server-side; clients only see reason.
func Upstream(cause error, reason string) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, cause),
		Message: "Failed to generate letter",
		Details: []FieldError{{Field: "generation", Message: reason}},
	}
}

func RateLimited() *AppError {
	return &AppError{Err: ErrRateLimited, Message: "Too many generation requests, please wait a moment and try again"}
}

// GenerationInProgress rejects a second concurrent generation from the same user.
func GenerationInProgress() *AppError {
	return &AppError{Err: ErrRateLimited, Message: "A letter is already being generated, please wait for it to finish"}
}
