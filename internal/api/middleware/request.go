// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/plutosync/internal/log"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestID propagates or assigns a request id and stores it in the
// request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), id)))
	})
}

// Recoverer turns handler panics into 500 responses.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger := log.WithComponentFromContext(r.Context(), "api")
				logger.Error().
					Str(log.FieldEvent, "http.panic").
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal_error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Logging writes one access log entry per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mw := &metricsWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(mw, r)

		logger := log.WithComponentFromContext(r.Context(), "api")
		ev := logger.Debug()
		if mw.statusCode >= http.StatusInternalServerError {
			ev = logger.Warn()
		}
		ev.Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", mw.statusCode).
			Int("bytes", mw.bytesWritten).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}
