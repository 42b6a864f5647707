package errors

import (
	"errors"
)

type Code string

const (
	CodeTransport            Code = "transport_failure"
	CodeAuthenticationFailed Code = "authentication_failed"
	CodeInvalidResponse      Code = "invalid_response"
	CodeInvalidTicket        Code = "invalid_ticket"
)

const (
	CodeUnknown              Code = "unknown"
	CodeInvalidConfiguration Code = "invalid_configuration"
	CodeStorageUnavailable   Code = "storage_unavailable"
)

var (
	ErrMissingServerURL = errors.New("casclient: server URL prefix is required")
	ErrMissingValidator = errors.New("casclient: validator is required")
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsCode(err error, code Code) bool {
	var typed *Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Code == code
}

func IsConfigurationError(err error) bool {
	return IsCode(err, CodeInvalidConfiguration)
}

func IsAuthenticationFailure(err error) bool {
	return IsCode(err, CodeAuthenticationFailed) || IsCode(err, CodeInvalidTicket)
}
