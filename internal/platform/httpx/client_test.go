package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_DefaultTimeoutAndTransport(t *testing.T) {
	client := NewClient(0)
	if client.Timeout != defaultClientTimeout {
		t.Fatalf("timeout = %v, want %v", client.Timeout, defaultClientTimeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", client.Transport)
	}
	if !transport.DisableCompression {
		t.Fatal("transport must leave content negotiation to the caller")
	}
	if transport.MaxIdleConnsPerHost != defaultMaxIdleConnsPerHost {
		t.Fatalf("MaxIdleConnsPerHost = %d, want %d", transport.MaxIdleConnsPerHost, defaultMaxIdleConnsPerHost)
	}
}

func TestNewTransport_CapsTimeouts(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		wantDial   time.Duration
		wantHeader time.Duration
	}{
		{"long timeout capped", time.Minute, defaultDialTimeout, defaultResponseHeaderTimeout},
		{"short timeout kept", 1500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransport(tt.timeout)
			if tr.TLSHandshakeTimeout != tt.wantDial {
				t.Fatalf("TLSHandshakeTimeout = %v, want %v", tr.TLSHandshakeTimeout, tt.wantDial)
			}
			if tr.ResponseHeaderTimeout != tt.wantHeader {
				t.Fatalf("ResponseHeaderTimeout = %v, want %v", tr.ResponseHeaderTimeout, tt.wantHeader)
			}
		})
	}
}

func TestNewTracedClient_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewTracedClient(time.Second, "catalog")
	if _, ok := client.Transport.(*http.Transport); ok {
		t.Fatal("expected instrumented transport")
	}
	resp, err := client.Get(srv.URL + "/v2/channels")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
