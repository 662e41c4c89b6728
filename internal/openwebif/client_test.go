// SPDX-License-Identifier: MIT

package openwebif

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReload_Modes(t *testing.T) {
	var modes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/servicelistreload", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "root", user)
		assert.Equal(t, "secret", pass)
		modes = append(modes, r.URL.Query().Get("mode"))
		_, _ = w.Write([]byte(`{"result": true, "message": "reloaded"}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL + "/", Username: "root", Password: "secret"})
	require.NoError(t, c.ReloadServices(context.Background()))
	require.NoError(t, c.ReloadBouquets(context.Background()))
	assert.Equal(t, []string{"0", "2"}, modes)
}

func TestReload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"not found", http.StatusNotFound, "nope", ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, "", ErrForbidden},
		{"server error", http.StatusBadGateway, "boom", ErrUpstreamError},
		{"bad json", http.StatusOK, "<html>", ErrUpstreamBadResponse},
		{"rejected", http.StatusOK, `{"result": false, "message": "busy"}`, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(Options{BaseURL: srv.URL}).ReloadBouquets(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			var owiErr *OWIError
			require.True(t, errors.As(err, &owiErr))
			assert.Equal(t, "servicelistreload", owiErr.Operation)
		})
	}
}

func TestReload_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	err := New(Options{BaseURL: base, Timeout: time.Second}).ReloadServices(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestReload_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Breaker: NewCircuitBreaker(2, time.Hour)})
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, c.ReloadBouquets(context.Background()), ErrUpstreamError)
	}
	assert.ErrorIs(t, c.ReloadBouquets(context.Background()), ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNop(t *testing.T) {
	var n Nop
	assert.NoError(t, n.ReloadServices(context.Background()))
	assert.NoError(t, n.ReloadBouquets(context.Background()))
}
