package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code and message so wrapped copies compare equal.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// Validation errors
var (
	ErrMissingJobDescription = NewDomainError(ErrCodeValidation, "job description is required")
	ErrMissingResume         = NewDomainError(ErrCodeValidation, "resume selection is required")
	ErrInvalidFileType       = NewDomainError(ErrCodeValidation, "invalid file type, only PDF allowed")
	ErrInvalidFilename       = NewDomainError(ErrCodeValidation, "invalid filename")
)

// Not found errors
var (
	ErrResumeNotFound = NewDomainError(ErrCodeNotFound, "resume not found")
)

// Operation errors
var (
	ErrIngestionFailed   = NewDomainError(ErrCodeInternalError, "ingestion failed (empty text?)")
	ErrMissingUploadFile = NewDomainError(ErrCodeValidation, "no file part")
)

// IsValidationError reports whether err wraps a DomainError with the validation code.
func IsValidationError(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

// HasCode reports whether err wraps a DomainError with the given code.
func HasCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
