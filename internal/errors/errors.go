// Package errors provides custom error types for the monestat API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Ingestion errors. ErrValidation covers malformed export schemas, rows, and
// date ranges; ErrConversion covers individual numeric or date literals that
// cannot be parsed.
var (
	ErrValidation = &AppError{Code: "VALIDATION_ERROR", Message: "Export data failed validation", StatusCode: http.StatusBadRequest}
	ErrConversion = &AppError{Code: "CONVERSION_ERROR", Message: "Value could not be converted", StatusCode: http.StatusBadRequest}
)

// Category and limit errors. A category lookup miss is data rather than a
// fault at the service layer; the sentinel exists for the HTTP boundary.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrNoLimitSet       = &AppError{Code: "NO_LIMIT_SET", Message: "No limit is set for this category", StatusCode: http.StatusNotFound}
)

// Storage errors are fatal to the current batch or query and must propagate
// unmasked so the caller can report failure upstream.
var (
	ErrStorage = &AppError{Code: "STORAGE_ERROR", Message: "Storage operation failed", StatusCode: http.StatusInternalServerError}
)
