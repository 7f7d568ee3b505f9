package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageExhausted is returned when a payload does not fit in the remaining capacity.
	ErrStorageExhausted = errors.New("storage exhausted")

	// ErrMalformedPayload is returned when a payload cannot be parsed.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnknownErrorCode is returned when a server reports an error code outside the protocol.
	ErrUnknownErrorCode = errors.New("unknown protocol error code")

	// ErrUnhandledStatus is the sentinel behind UnhandledStatusError.
	ErrUnhandledStatus = errors.New("unhandled transport status")

	// ErrUnhandledApplication is the sentinel behind UnhandledApplicationError.
	ErrUnhandledApplication = errors.New("unhandled application error")

	// ErrInvalidVerb is returned when a request names a verb outside the protocol.
	ErrInvalidVerb = errors.New("invalid protocol verb")

	// ErrTooManyWaits is returned when a server keeps asking to wait beyond the configured limit.
	ErrTooManyWaits = errors.New("too many consecutive wait signals")
)

// StorageExhaustedError reports the size of a rejected payload and the space left.
type StorageExhaustedError struct {
	Attempted int64
	Available int64
}

func (e *StorageExhaustedError) Error() string {
	return fmt.Sprintf("storage exhausted: attempted %d bytes, %d available", e.Attempted, e.Available)
}

func (e *StorageExhaustedError) Unwrap() error {
	return ErrStorageExhausted
}

// UnhandledStatusError terminates a run on an HTTP status the harvester cannot recover from.
type UnhandledStatusError struct {
	StatusCode int
	Reason     string
}

func (e *UnhandledStatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unhandled transport status %d", e.StatusCode)
	}
	return fmt.Sprintf("unhandled transport status %d: %s", e.StatusCode, e.Reason)
}

func (e *UnhandledStatusError) Unwrap() error {
	return ErrUnhandledStatus
}

// UnhandledApplicationError terminates a run on a protocol error.
type UnhandledApplicationError struct {
	Code ErrorCode
	Text string
}

func (e *UnhandledApplicationError) Error() string {
	return fmt.Sprintf("unhandled application error %s: %s", e.Code, e.Text)
}

func (e *UnhandledApplicationError) Unwrap() error {
	return ErrUnhandledApplication
}
