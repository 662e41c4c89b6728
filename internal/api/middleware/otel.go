// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithSpanOptions(
				trace.WithAttributes(attribute.String("service.name", serviceName)),
			),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips health and metrics endpoints.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return false
	}
	return true
}

// spanNameFormatter names spans "{METHOD} {ROUTE}", preferring the chi route
// pattern over the raw path.
func spanNameFormatter(_ string, r *http.Request) string {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			route = pattern
		}
	}
	return r.Method + " " + route
}

// ExtractTraceContext returns the trace and span id of the request, or
// empty strings when no span is active.
func ExtractTraceContext(r *http.Request) (traceID, spanID string) {
	spanCtx := trace.SpanContextFromContext(r.Context())
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}
