package submit

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is matched by every *NetworkError.
	ErrNetwork = errors.New("network error")
	// ErrRejected is matched by every *RejectedError.
	ErrRejected = errors.New("relay reported failure")
)

// NetworkError means the relay could not be reached or its reply could not be read.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// RejectedError means the relay answered but reported that the message was not sent.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay reported failure (status %d)", e.Status)
	}
	return fmt.Sprintf("relay reported failure (status %d): %s", e.Status, e.Message)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }
