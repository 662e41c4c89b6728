// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plutosync_http_request_duration_seconds",
		Help:    "Control API request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "plutosync_http_requests_in_flight",
		Help: "Control API requests being served",
	})
)

// Metrics records request latency per chi route pattern.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			mw := &metricsWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(mw, r)

			// route patterns keep label cardinality bounded
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			httpRequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(mw.statusCode)).
				Observe(time.Since(start).Seconds())
		})
	}
}

// metricsWriter captures the status code and size of a response.
type metricsWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	written      bool
}

func (mw *metricsWriter) WriteHeader(statusCode int) {
	if !mw.written {
		mw.statusCode = statusCode
		mw.written = true
	}
	mw.ResponseWriter.WriteHeader(statusCode)
}

func (mw *metricsWriter) Write(b []byte) (int, error) {
	if !mw.written {
		mw.WriteHeader(http.StatusOK)
	}
	n, err := mw.ResponseWriter.Write(b)
	mw.bytesWritten += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (mw *metricsWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}
