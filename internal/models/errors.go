package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed request
type ErrorKind string

const (
	PermissionDenied   ErrorKind = "permission_denied"
	UserCancelled      ErrorKind = "user_cancelled"
	CaptureDeviceError ErrorKind = "capture_device_error"
	UnreadableImage    ErrorKind = "unreadable_image"
	UnsupportedFormat  ErrorKind = "unsupported_format"
	EngineUnavailable  ErrorKind = "engine_unavailable"
	Timeout            ErrorKind = "timeout"
	UnknownError       ErrorKind = "unknown_error"
)

// Error is a failure carrying an ErrorKind
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or UnknownError
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}
