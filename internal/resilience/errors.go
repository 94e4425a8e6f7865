// Package resilience classifies collaborator failures and retries the
// transient ones. A geocoder or URL prober being down is a failed check,
// never a fatal pipeline error.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// UnavailableError marks a collaborator (geocoder, URL prober) as unreachable
// or temporarily failing. Callers treat it as a failed check and leave the
// candidate pending for retry.
type UnavailableError struct {
	Collaborator string
	Err          error
	StatusCode   int
}

func (e *UnavailableError) Error() string {
	return e.Collaborator + " unavailable: " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a collaborator outage.
func Unavailable(collaborator string, err error, statusCode int) *UnavailableError {
	return &UnavailableError{Collaborator: collaborator, Err: err, StatusCode: statusCode}
}

// IsTransient reports whether the error chain indicates a temporary failure:
// an explicit UnavailableError, a network timeout, a refused/reset
// connection, or a known transient pattern from wrapped HTTP client errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ue *UnavailableError
	if errors.As(err, &ue) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"no such host",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"context deadline exceeded",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code is a server-side
// condition that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
