package errors

import (
	"errors"
	"fmt"
)

var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error extends the builtin error with a stable code.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// AppError is the error type handlers translate into transport responses.
type AppError struct {
	code    string
	message string
	err     error
	details map[string]string
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

func (e *AppError) Unwrap() error {
	return e.err
}

// Message returns the client-safe message without the wrapped cause.
func (e *AppError) Message() string {
	return e.message
}

// Details returns field level details, e.g. validation failures keyed by field name.
func (e *AppError) Details() map[string]string {
	return e.details
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// NewValidationError creates an INVALID_ARGUMENT error carrying per-field messages.
func NewValidationError(message string, details map[string]string) *AppError {
	return &AppError{
		code:    ErrInvalidArgument,
		message: message,
		details: details,
	}
}

// Wrap wraps err keeping the code of an inner AppError when there is one.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return &AppError{code: appErr.Code(), message: message, err: err, details: appErr.details}
	}

	return NewAppError(ErrInternal, message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or ErrInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}
