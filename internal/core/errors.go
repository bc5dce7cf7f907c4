package core

import (
	"errors"

	"github.com/vovakirdan/wirestream/internal/rooms"
)

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound     = "room_not_found"
	ErrCodeStoreUnavailable = "store_unavailable"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeSessionClosed    = "session_closed"
	ErrCodeInvalidMessage   = "invalid_message"
)

var (
	ErrRoomNotFound     = rooms.ErrRoomNotFound
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrBadRequest       = errors.New("bad request")
	ErrSessionClosed    = errors.New("session closed")
)

// CoreError wraps a code and human-readable message. It matches its
// sentinel and the underlying cause with errors.Is.
type CoreError struct {
	Code     string
	Message  string
	sentinel error
	cause    error
}

func (e *CoreError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel and the cause.
func (e *CoreError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.sentinel != nil {
		errs = append(errs, e.sentinel)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Retryable reports whether the caller may retry the same request.
func (e *CoreError) Retryable() bool {
	return e.Code == ErrCodeStoreUnavailable
}

func coreError(code, msg string, sentinel, cause error) *CoreError {
	return &CoreError{Code: code, Message: msg, sentinel: sentinel, cause: cause}
}

func roomNotFound() *CoreError {
	return coreError(ErrCodeRoomNotFound, "Room doesn't exist", ErrRoomNotFound, nil)
}

func storeUnavailable(cause error) *CoreError {
	return coreError(ErrCodeStoreUnavailable, "room state is temporarily unavailable, retry", ErrStoreUnavailable, cause)
}

func badRequest(msg string, cause error) *CoreError {
	return coreError(ErrCodeBadRequest, msg, ErrBadRequest, cause)
}

func sessionClosed() *CoreError {
	return coreError(ErrCodeSessionClosed, "connection is closed", ErrSessionClosed, nil)
}

// AsCoreError extracts a *CoreError from err, classifying unknown errors as
// store failures.
func AsCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return storeUnavailable(err)
}
