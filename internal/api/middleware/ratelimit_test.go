// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(h http.Handler, method, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/status", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(code) })
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 3, WindowSize: time.Second})(okHandler(http.StatusOK))

	for i := range 3 {
		require.Equal(t, http.StatusOK, hit(h, http.MethodGet, "192.0.2.1:5000").Code, "request %d", i+1)
	}

	rec := hit(h, http.MethodGet, "192.0.2.1:5000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestRateLimit_KeysByClient(t *testing.T) {
	tests := []struct {
		name    string
		keyFunc func(*http.Request) (string, error)
		other   string
		want    int
	}{
		{name: "by ip", other: "192.0.2.2:5000", want: http.StatusOK},
		{
			name:    "shared key",
			keyFunc: func(*http.Request) (string, error) { return "all", nil },
			other:   "192.0.2.2:5000",
			want:    http.StatusTooManyRequests,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(RateLimitConfig{
				RequestLimit: 1,
				WindowSize:   time.Minute,
				KeyFunc:      tt.keyFunc,
			})(okHandler(http.StatusOK))

			require.Equal(t, http.StatusOK, hit(h, http.MethodGet, "192.0.2.1:5000").Code)
			assert.Equal(t, tt.want, hit(h, http.MethodGet, tt.other).Code)
		})
	}
}

func TestSyncRateLimit_TenPerMinute(t *testing.T) {
	h := SyncRateLimit()(okHandler(http.StatusAccepted))

	for range 10 {
		require.Equal(t, http.StatusAccepted, hit(h, http.MethodPost, "10.0.0.1:1234").Code)
	}
	rec := hit(h, http.MethodPost, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
