package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodeQueue              = "QUEUE_ERROR"
	ErrCodeUnknownJobType     = "UNKNOWN_JOB_TYPE"
	ErrCodeUnknownPlatform    = "UNKNOWN_PLATFORM"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// HasCode reports whether err is an AppError carrying code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// QueueError creates a job queue error
func QueueError(message string, err error) *AppError {
	return Wrap(err, ErrCodeQueue, message, http.StatusServiceUnavailable)
}

// UnknownJobType is returned by the worker when no handler matches a job
func UnknownJobType(jobType string) *AppError {
	return New(ErrCodeUnknownJobType, fmt.Sprintf("unknown job type: %s", jobType), http.StatusInternalServerError)
}

// UnknownPlatform creates an error for an unrecognised platform identifier
func UnknownPlatform(p string) *AppError {
	return New(ErrCodeUnknownPlatform, fmt.Sprintf("unknown platform: %s", p), http.StatusBadRequest)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// ServiceUnavailable creates a service unavailable error
func ServiceUnavailable(message string) *AppError {
	return New(ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}
