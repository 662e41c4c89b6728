package openwebif

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound            = errors.New("receiver: resource not found")
	ErrForbidden           = errors.New("receiver: access forbidden")
	ErrUpstreamUnavailable = errors.New("receiver: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("receiver: internal error (5xx)")
	ErrUpstreamBadResponse = errors.New("receiver: invalid response format or malformed data")
	ErrTimeout             = errors.New("receiver: request timed out")
	ErrRejected            = errors.New("receiver: request rejected")
)

// OWIError is a rich error type that wraps the sentinel errors with context.
type OWIError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *OWIError) Error() string {
	msg := fmt.Sprintf("openwebif: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OWIError) Unwrap() error {
	return e.Sentinel
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrForbidden
	case status >= 500:
		return ErrUpstreamError
	default:
		return ErrUpstreamBadResponse
	}
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ErrTimeout
	}
	return ErrUpstreamUnavailable
}
