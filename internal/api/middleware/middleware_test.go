// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/plutosync/internal/log"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36, "a uuid is generated")
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
}

func TestStack(t *testing.T) {
	r := NewRouter(StackConfig{EnableMetrics: true, TracingService: "test", EnableLogging: true, RateLimit: 1})
	r.Get("/regions/{region}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(r, "region")))
	})

	req := httptest.NewRequest(http.MethodGet, "/regions/DE", nil)
	req.RemoteAddr = "10.1.1.1:1000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DE", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSpanNameFormatter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status?x=1", nil)
	assert.Equal(t, "GET /api/v1/status", spanNameFormatter("", req))
	assert.False(t, shouldTrace(httptest.NewRequest(http.MethodGet, "/healthz", nil)))
	assert.True(t, shouldTrace(req))
}
