// Package openwebif asks the receiver to reload its service lists through
// the OpenWebif HTTP API.
package openwebif

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/platform/httpx"
)

// Reload modes of /api/servicelistreload.
const (
	ReloadAll      = 0
	ReloadLamedb   = 1
	ReloadBouquets = 2
)

const maxErrorBody = 512

// Options configure a Client.
type Options struct {
	BaseURL    string
	Username   string
	Password   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    *CircuitBreaker
}

// Client talks to one receiver.
type Client struct {
	base     string
	user     string
	password string
	http     *http.Client
	breaker  *CircuitBreaker
}

// New returns a client for the receiver at opts.BaseURL.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpx.NewClient(timeout)
	}
	cb := opts.Breaker
	if cb == nil {
		cb = NewCircuitBreaker(3, 30*time.Second)
	}
	return &Client{
		base:     strings.TrimRight(opts.BaseURL, "/"),
		user:     opts.Username,
		password: opts.Password,
		http:     hc,
		breaker:  cb,
	}
}

// ReloadServices reloads the service list and the bouquets.
func (c *Client) ReloadServices(ctx context.Context) error {
	return c.reload(ctx, ReloadAll)
}

// ReloadBouquets reloads the bouquets only.
func (c *Client) ReloadBouquets(ctx context.Context) error {
	return c.reload(ctx, ReloadBouquets)
}

func (c *Client) reload(ctx context.Context, mode int) error {
	op := "servicelistreload"
	err := c.breaker.Execute(func() error {
		return c.call(ctx, op, "/api/servicelistreload", url.Values{"mode": {strconv.Itoa(mode)}})
	})
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "openwebif")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "openwebif.reload_failed").
			Int("mode", mode).
			Msg("receiver reload failed")
		return err
	}
	logger := log.WithComponentFromContext(ctx, "openwebif")
	logger.Debug().
		Str(log.FieldEvent, "openwebif.reloaded").
		Int("mode", mode).
		Msg("receiver reloaded")
	return nil
}

type apiResult struct {
	Result  bool   `json:"result"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, op, path string, params url.Values) error {
	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &OWIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Err: err}
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &OWIError{Sentinel: classifyTransport(err), Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &OWIError{Sentinel: classifyTransport(err), Operation: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &OWIError{Sentinel: classifyStatus(resp.StatusCode), Operation: op, Status: resp.StatusCode, Body: truncate(string(body))}
	}
	var res apiResult
	if err := json.Unmarshal(body, &res); err != nil {
		return &OWIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Status: resp.StatusCode, Err: err}
	}
	if !res.Result {
		return &OWIError{Sentinel: ErrRejected, Operation: op, Status: resp.StatusCode, Body: truncate(res.Message)}
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}

// Nop is a receiver that ignores reload requests.
type Nop struct{}

func (Nop) ReloadServices(context.Context) error { return nil }
func (Nop) ReloadBouquets(context.Context) error { return nil }
