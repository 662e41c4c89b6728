// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrTransport  = errors.New("catalog: transport failure")
	ErrHTTPStatus = errors.New("catalog: unexpected HTTP status")
	ErrDecode     = errors.New("catalog: invalid response body")
)

// FetchError describes a failed catalog request.
type FetchError struct {
	Sentinel error
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Sentinel, e.Endpoint)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// outcome maps an error to a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrHTTPStatus):
		return "http_error"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	default:
		return "transport_error"
	}
}
