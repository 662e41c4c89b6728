// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP middleware of the control API.
package middleware

import (
	"github.com/go-chi/chi/v5"
)

// StackConfig configures the middleware stack of the control API.
type StackConfig struct {
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// RateLimit is the number of requests per minute and client IP; zero
	// disables limiting.
	RateLimit int
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(Logging)
	}
	if cfg.RateLimit > 0 {
		r.Use(APIRateLimit(cfg.RateLimit))
	}
}
