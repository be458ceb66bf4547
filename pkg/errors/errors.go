package errors

import (
	"errors"
	"fmt"
)

// ========== Error code constants ==========

// CodeSuccess success code
const (
	CodeSuccess = 200
)

// HTTP layer error codes (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// AppError is a policy failure raised by a service and mapped to a status code at the HTTP boundary.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a cause to an AppError
func Wrap(err error, code int, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NotFound referenced entity missing or soft-deleted
func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

// BadRequest invalid input
func BadRequest(message string) *AppError {
	return New(CodeInvalidParam, message)
}

// Conflict duplicate business key
func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

// Unauthorized no verified identity
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "Unauthorized"
	}
	return New(CodeUnauthorized, message)
}

// Forbidden identity present but not allowed
func Forbidden(message string) *AppError {
	if message == "" {
		message = "Forbidden"
	}
	return New(CodeForbidden, message)
}

// Internal unexpected failure
func Internal(message string) *AppError {
	if message == "" {
		message = "Internal server error"
	}
	return New(CodeServerError, message)
}

// GetCode returns the code carried by err, 500 when err is not an AppError.
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage returns the user-facing message carried by err.
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code int) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
