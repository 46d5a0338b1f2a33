// Package domain holds the error taxonomy shared by every layer of the service.
package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError for callers and for HTTP mapping.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeCapacityExceeded  ErrorCode = "CAPACITY_EXCEEDED"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeContention        ErrorCode = "CONTENTION_TIMEOUT"
	CodeStorage           ErrorCode = "STORAGE_ERROR"
)

// AppError is the error type returned across package boundaries.
type AppError struct {
	Code    ErrorCode
	Message string
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

// Is matches another AppError by code, so sentinel comparisons work with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// Sentinels for errors.Is checks. They carry only a code.
var (
	ErrValidation        = &AppError{Code: CodeValidation}
	ErrNotFound          = &AppError{Code: CodeNotFound}
	ErrInvalidTransition = &AppError{Code: CodeInvalidTransition}
	ErrCapacityExceeded  = &AppError{Code: CodeCapacityExceeded}
	ErrConflict          = &AppError{Code: CodeConflict}
	ErrContention        = &AppError{Code: CodeContention}
	ErrStorage           = &AppError{Code: CodeStorage}
)

// NewValidationError reports client-correctable input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewInvalidStateError reports an illegal lifecycle move.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("invalid state transition from %s to %s", from, to),
	}
}

// NewCapacityExceededError reports a full slot cell.
func NewCapacityExceededError(message string) *AppError {
	return &AppError{Code: CodeCapacityExceeded, Message: message}
}

// NewConflictError reports a uniqueness or version conflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewContentionError reports that a per-record lock could not be acquired in time.
func NewContentionError(message string) *AppError {
	return &AppError{Code: CodeContention, Message: message}
}

// NewStorageError wraps a persistence failure.
func NewStorageError(message string, err error) *AppError {
	return &AppError{Code: CodeStorage, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether err may succeed when attempted again.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeStorage, CodeContention:
		return true
	}
	return false
}
