// Package httpx builds the outbound HTTP clients used by plutosync.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 30 * time.Second
	defaultDialTimeout           = 5 * time.Second
	defaultResponseHeaderTimeout = 15 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

// NewTransport returns a hardened transport. Dial and response header
// timeouts are capped by timeout. Compression is negotiated by callers.
func NewTransport(timeout time.Duration) *http.Transport {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	dialTimeout := min(timeout, defaultDialTimeout)
	responseHeaderTimeout := min(timeout, defaultResponseHeaderTimeout)

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
}

// NewClient returns a hardened HTTP client.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &http.Client{Timeout: timeout, Transport: NewTransport(timeout)}
}

// NewTracedClient is NewClient with an OpenTelemetry client span per request.
func NewTracedClient(timeout time.Duration, operation string) *http.Client {
	c := NewClient(timeout)
	c.Transport = otelhttp.NewTransport(c.Transport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return operation + " " + r.URL.Path
		}),
	)
	return c
}
