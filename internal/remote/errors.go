package remote

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnauthorized matches any 401 response from the booking service.
	ErrUnauthorized = errors.New("remote: unauthorized")
	// ErrValidation marks local request validation failures that never reach the network.
	ErrValidation = errors.New("validation failed")
)

// Error is a non-2xx response from the booking service.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("remote: status=%d", e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Status returns the HTTP status reported by the booking service.
func (e *Error) Status() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// TransportError wraps a connection level failure (no HTTP response was received).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return "remote: transport error"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the failure is a name resolution error.
// Connection resets and timeouts are not retried.
func (e *TransportError) Retryable() bool {
	if e == nil || e.Err == nil {
		return false
	}
	var dnsErr *net.DNSError
	return errors.As(e.Err, &dnsErr)
}

// IsUnauthorized reports whether err carries a 401 classification.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode extracts the remote status from err, if any.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var statusErr interface{ Status() int }
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	statusCode := statusErr.Status()
	if statusCode <= 0 {
		return 0, false
	}
	return statusCode, true
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if statusCode, ok := StatusCode(err); ok {
		if statusCode == http.StatusUnauthorized || statusCode == http.StatusNotFound {
			return false
		}
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		return false
	}
	return transportErr.Retryable()
}
