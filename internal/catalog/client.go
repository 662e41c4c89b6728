// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog is a client for the Pluto TV catalog API.
//
// Fetch failures never propagate to callers of the typed accessors: they
// are logged and counted, and the accessor returns an empty result.
package catalog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/metrics"
	"github.com/ManuGH/plutosync/internal/platform/httpx"
	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.pluto.tv"
	DefaultTimeout = 30 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 6.2; rv:24.0) Gecko/20100101 Firefox/24.0"

	// maxBodyBytes bounds a single response; guide responses for large
	// regions are a few MiB.
	maxBodyBytes = 64 << 20
)

var (
	identityOnce sync.Once
	deviceID     string
	sessionID    string
)

// processIdentity returns the device (time based UUID) and session (random
// UUID) identifiers shared by every client of this process.
func processIdentity() (string, string) {
	identityOnce.Do(func() {
		dev, err := uuid.NewUUID()
		if err != nil {
			dev = uuid.New()
		}
		deviceID = strings.ReplaceAll(dev.String(), "-", "")
		sessionID = strings.ReplaceAll(uuid.New().String(), "-", "")
	})
	return deviceID, sessionID
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	DeviceID   string
	SessionID  string
}

// Client performs catalog API requests.
type Client struct {
	baseURL   string
	http      *http.Client
	deviceID  string
	sessionID string
	logger    zerolog.Logger
}

// New creates a catalog client.
func New(opts Options) *Client {
	dev, sid := opts.DeviceID, opts.SessionID
	if dev == "" || sid == "" {
		pd, ps := processIdentity()
		if dev == "" {
			dev = pd
		}
		if sid == "" {
			sid = ps
		}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.NewTracedClient(DefaultTimeout, "catalog")
	}
	return &Client{
		baseURL:   base,
		http:      hc,
		deviceID:  dev,
		sessionID: sid,
		logger:    log.WithComponent("catalog"),
	}
}

// DeviceID returns the device identifier sent with every request.
func (c *Client) DeviceID() string { return c.deviceID }

// SessionID returns the session identifier sent with every request.
func (c *Client) SessionID() string { return c.sessionID }

// BuildHeader returns the request headers the catalog expects. ip, when
// non-empty, is sent as X-Forwarded-For to select a region.
func BuildHeader(ip string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	h.Set("Host", "api.pluto.tv")
	h.Set("Connection", "keep-alive")
	h.Set("Referer", "http://pluto.tv/")
	h.Set("Origin", "http://pluto.tv")
	h.Set("User-Agent", userAgent)
	if ip != "" {
		h.Set("X-Forwarded-For", ip)
	}
	return h
}

// FetchJSON performs a GET of endpoint and decodes the JSON body into out.
// It returns false, leaving out untouched, on any failure. Failures are
// logged and counted but never returned.
func (c *Client) FetchJSON(ctx context.Context, endpoint string, header http.Header, params url.Values, out any) bool {
	return c.fetch(ctx, endpoint, endpoint, header, params, out)
}

func (c *Client) fetch(ctx context.Context, label, endpoint string, header http.Header, params url.Values, out any) bool {
	err := c.Do(ctx, endpoint, header, params, out)
	metrics.RecordCatalogRequest(label, outcome(err))
	if err != nil {
		logger := log.WithContext(ctx, c.logger)
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "catalog.fetch_failed").
			Str(log.FieldEndpoint, endpoint).
			Msg("catalog request failed")
		return false
	}
	return true
}

// Do performs a GET of endpoint and decodes the JSON body into out,
// returning a *FetchError on failure.
func (c *Client) Do(ctx context.Context, endpoint string, header http.Header, params url.Values, out any) error {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = c.baseURL + endpoint
	}
	u, err := url.Parse(target)
	if err != nil {
		return &FetchError{Sentinel: ErrTransport, Endpoint: endpoint, Err: err}
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &FetchError{Sentinel: ErrTransport, Endpoint: endpoint, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	// The Host header is sent for fidelity with the browser client but the
	// request must still reach the configured base URL.
	req.Header.Del("Host")
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Sentinel: ErrTransport, Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &FetchError{Sentinel: ErrHTTPStatus, Endpoint: endpoint, Status: resp.StatusCode}
	}

	body, err := decodedBody(resp)
	if err != nil {
		return &FetchError{Sentinel: ErrDecode, Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(out); err != nil {
		return &FetchError{Sentinel: ErrDecode, Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func decodedBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// deviceParams returns the identity query parameters.
func (c *Client) deviceParams() url.Values {
	return url.Values{"deviceId": {c.deviceID}, "sid": {c.sessionID}}
}
