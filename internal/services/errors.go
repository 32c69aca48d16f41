package services

import (
	"errors"
)

// ErrorKind classifies service failures for the transport layer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
	KindGatewayUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindGatewayUnavailable:
		return "gateway_unavailable"
	default:
		return "internal"
	}
}

// AppError is the error type every use case returns to handlers.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(kind ErrorKind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func InvalidInput(message string) *AppError { return newAppError(KindInvalidInput, message, nil) }
func Unauthorized(message string) *AppError { return newAppError(KindUnauthorized, message, nil) }
func Forbidden(message string) *AppError    { return newAppError(KindForbidden, message, nil) }
func NotFound(message string) *AppError     { return newAppError(KindNotFound, message, nil) }
func Conflict(message string) *AppError     { return newAppError(KindConflict, message, nil) }

func TooManyRequests(message string) *AppError {
	return newAppError(KindTooManyRequests, message, nil)
}

func GatewayUnavailable(message string, err error) *AppError {
	return newAppError(KindGatewayUnavailable, message, err)
}

func Internal(err error) *AppError {
	return newAppError(KindInternal, "internal server error", err)
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
