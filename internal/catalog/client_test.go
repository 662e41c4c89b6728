// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/region"
	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, HTTPClient: srv.Client(), DeviceID: "dev1", SessionID: "sid1"})
}

func TestBuildHeader(t *testing.T) {
	h := BuildHeader("1.2.3.4")
	assert.Equal(t, "application/json, text/javascript, */*; q=0.01", h.Get("Accept"))
	assert.Equal(t, "api.pluto.tv", h.Get("Host"))
	assert.Equal(t, "keep-alive", h.Get("Connection"))
	assert.Equal(t, "http://pluto.tv/", h.Get("Referer"))
	assert.Equal(t, "http://pluto.tv", h.Get("Origin"))
	assert.Equal(t, "Mozilla/5.0 (Windows NT 6.2; rv:24.0) Gecko/20100101 Firefox/24.0", h.Get("User-Agent"))
	assert.Equal(t, "1.2.3.4", h.Get("X-Forwarded-For"))

	assert.Empty(t, BuildHeader("").Values("X-Forwarded-For"))
}

func TestProcessIdentity(t *testing.T) {
	a := New(Options{})
	b := New(Options{})
	assert.Len(t, a.DeviceID(), 32)
	assert.Len(t, a.SessionID(), 32)
	assert.Equal(t, a.DeviceID(), b.DeviceID())
	assert.Equal(t, a.SessionID(), b.SessionID())
	assert.NotEqual(t, a.DeviceID(), a.SessionID())
}

func TestLineup(t *testing.T) {
	var gotXFF, gotDevice, gotSID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/channels", r.URL.Path)
		gotXFF = r.Header.Get("X-Forwarded-For")
		gotDevice = r.URL.Query().Get("deviceId")
		gotSID = r.URL.Query().Get("sid")
		_, _ = w.Write([]byte(`[
			{"_id":"c3","name":"Three","number":30,"category":"News","stitched":{"urls":[{"type":"hls","url":"http://x/3"}]}},
			{"_id":"c1","name":"One","number":"10","category":"Movies","colorLogoPNG":{"path":"http://img/1.png"}},
			"garbage",
			{"_id":"c2","name":"Two","number":20}
		]`))
	})

	got := c.Lineup(context.Background(), region.Region{Code: "DE", IP: "85.214.132.117"})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "http://img/1.png", got[0].ColorLogoPNG.Path)
	assert.Equal(t, "http://x/3", got[2].Stitched.URLs[0].URL)
	assert.Equal(t, "85.214.132.117", gotXFF)
	assert.Equal(t, "dev1", gotDevice)
	assert.Equal(t, "sid1", gotSID)
}

func TestFetchJSON_Failures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		sentinel error
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }, ErrHTTPStatus},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"a":`)) }, ErrDecode},
		{"unknown encoding", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Encoding", "zstd")
			_, _ = w.Write([]byte(`{}`))
		}, ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			out := map[string]any{"keep": true}
			assert.False(t, c.FetchJSON(context.Background(), "/v2/channels", BuildHeader(""), nil, &out))
			assert.Equal(t, map[string]any{"keep": true}, out)

			err := c.Do(context.Background(), "/v2/channels", nil, nil, &out)
			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestFetchJSON_LogsWithContextFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	var buf bytes.Buffer
	c.logger = zerolog.New(&buf)

	ctx := log.ContextWithRegion(log.ContextWithJobID(context.Background(), "job-7"), "DE")
	require.False(t, c.FetchJSON(ctx, "/v2/channels", BuildHeader(""), nil, &struct{}{}))

	out := buf.String()
	assert.Contains(t, out, `"event":"catalog.fetch_failed"`)
	assert.Contains(t, out, `"job_id":"job-7"`)
	assert.Contains(t, out, `"region":"DE"`)
	assert.Contains(t, out, `"endpoint":"/v2/channels"`)
}

func TestFetchJSON_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Options{BaseURL: base, DeviceID: "d", SessionID: "s"})
	assert.Nil(t, c.Lineup(context.Background(), region.Region{Code: "DE"}))
	assert.ErrorIs(t, c.Do(context.Background(), "/v2/channels", nil, nil, &struct{}{}), ErrTransport)
}

func TestFetchJSON_CompressedBodies(t *testing.T) {
	payload := []byte(`[{"_id":"a","number":1}]`)

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write(payload)
	require.NoError(t, bw.Close())

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(payload)
	require.NoError(t, gw.Close())

	for name, body := range map[string][]byte{"br": br.Bytes(), "gzip": gz.Bytes()} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "br, gzip", r.Header.Get("Accept-Encoding"))
				w.Header().Set("Content-Encoding", name)
				_, _ = w.Write(body)
			})
			got := c.Lineup(context.Background(), region.Region{Code: "US"})
			require.Len(t, got, 1)
			assert.Equal(t, "a", got[0].ID)
		})
	}
}

func TestGuideWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 23, 41, 5, 0, time.FixedZone("CET", 3600))
	start, stop := GuideWindow(now)
	assert.Equal(t, "2024-03-10T22:00:00Z", start)
	assert.Equal(t, "2024-03-11T22:00:00Z", stop)
}

func TestGuide(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-03-10T22:00:00Z", r.URL.Query().Get("start"))
		assert.Equal(t, "2024-03-11T22:00:00Z", r.URL.Query().Get("stop"))
		_, _ = w.Write([]byte(`[
			{"_id":"g2","number":2,"timelines":[{"start":"2024-03-10T22:00:00.000Z","title":"Late","episode":{"name":"E","duration":"1800000","series":{"type":"tv"}}}]},
			{"_id":"g1","number":1,"timelines":"none"}
		]`))
	})
	got := c.Guide(context.Background(), region.Region{Code: "DE"}, time.Date(2024, 3, 10, 22, 59, 0, 0, time.UTC))
	require.Len(t, got, 2)
	assert.Equal(t, "g1", got[0].ID)
	assert.Empty(t, got[0].Timelines)
	require.Len(t, got[1].Timelines, 1)
	assert.Equal(t, 1800000, got[1].Timelines[0].Episode.Duration.Int())
	assert.Equal(t, "tv", got[1].Timelines[0].Episode.Series.Type)
}
