// Package errors classifies failures so callers can decide how to report them
// without inspecting messages.
package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeValidation ErrorType = "VALIDATION"
	// ErrorTypeConflict is used when a sweep is already running.
	ErrorTypeConflict ErrorType = "CONFLICT"
	ErrorTypeInternal ErrorType = "INTERNAL"
	// ErrorTypeParse marks a tracing payload that could not be decoded.
	ErrorTypeParse ErrorType = "PARSE"
	// ErrorTypePersistence marks a failed write to the order store.
	ErrorTypePersistence ErrorType = "PERSISTENCE"
	// ErrorTypePublish marks an event the bus did not accept.
	ErrorTypePublish ErrorType = "PUBLISH"
)

// AppError is a classified error. Message is safe to show to API clients;
// Err is the underlying cause and is not.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return string(e.Type) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, Err: cause}
}

func NewNotFoundError(message string) *AppError {
	return newError(ErrorTypeNotFound, message, nil)
}

func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil)
}

func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message, nil)
}

func NewInternalError(message string, err error) *AppError {
	return newError(ErrorTypeInternal, message, err)
}

func NewParseError(message string, err error) *AppError {
	return newError(ErrorTypeParse, message, err)
}

func NewPersistenceError(message string, err error) *AppError {
	return newError(ErrorTypePersistence, message, err)
}

func NewPublishError(message string, err error) *AppError {
	return newError(ErrorTypePublish, message, err)
}

// As returns the outermost AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return nil, false
	}
	return appErr, true
}

// TypeOf returns the type of the outermost AppError in err's chain, or
// ErrorTypeInternal for unclassified errors.
func TypeOf(err error) ErrorType {
	if appErr, ok := As(err); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err's chain holds an AppError of type t.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}
