package repository

import (
	"errors"
	"fmt"
)

// Custom error types
var (
	ErrRemoteFetch = errors.New("remote fetch failed")
	ErrCircuitOpen = errors.New("archive circuit breaker open")
)

// RemoteFetchError reports a failed archive request: transport failure,
// non-2xx status or an undecodable body. It matches ErrRemoteFetch.
type RemoteFetchError struct {
	StatusCode int
	Reason     string
	Err        error

	retryable bool
}

func (e *RemoteFetchError) Error() string {
	msg := ErrRemoteFetch.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

func (e *RemoteFetchError) Is(target error) bool {
	return target == ErrRemoteFetch
}

// Retryable reports whether another attempt could succeed.
func (e *RemoteFetchError) Retryable() bool {
	return e.retryable
}
