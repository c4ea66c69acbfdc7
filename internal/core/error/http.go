package errx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// RetryableStatus reports whether an HTTP status from an upstream service is
// worth retrying.
func RetryableStatus(status int) bool {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// FromStatus builds an ExternalServiceError for a non-2xx response.
func FromStatus(service string, status int, body string) *AppError {
	if len(body) > 200 {
		body = body[:200]
	}
	e := External(fmt.Errorf("unexpected status %d: %s", status, body), service, RetryableStatus(status))
	e.Status = status
	return e
}

// FromTransport classifies an error returned before any response arrived.
// Timeouts and network failures are retryable, cancellation is not.
func FromTransport(service string, err error) *AppError {
	if errors.Is(err, context.Canceled) {
		return External(err, service, false)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return External(err, service, true)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return External(err, service, true)
	}
	return External(err, service, false)
}

// Malformed reports a payload that could not be decoded. Never retryable.
func Malformed(service string, err error) *AppError {
	return External(fmt.Errorf("malformed response: %w", err), service, false)
}
