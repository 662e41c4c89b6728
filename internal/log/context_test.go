// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextIDs(t *testing.T) {
	tests := []struct {
		name string
		set  func(context.Context, string) context.Context
		get  func(context.Context) string
		ctx  context.Context
		id   string
	}{
		{"request id nil context", ContextWithRequestID, RequestIDFromContext, nil, "req-1"},
		{"request id background", ContextWithRequestID, RequestIDFromContext, context.Background(), "req-2"},
		{"job id", ContextWithJobID, JobIDFromContext, context.Background(), "job-1"},
		{"region", ContextWithRegion, RegionFromContext, context.Background(), "DE"},
		{"empty", ContextWithJobID, JobIDFromContext, context.Background(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.set(tt.ctx, tt.id)
			if got := tt.get(ctx); got != tt.id {
				t.Errorf("got %q, want %q", got, tt.id)
			}
		})
	}
}

func TestWithComponentFromContext(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})
	t.Cleanup(func() { Configure(Config{}) })

	ctx := ContextWithJobID(context.Background(), "job-42")
	ctx = ContextWithRegion(ctx, "US")
	logger := WithComponentFromContext(ctx, "jobs")
	logger.Info().Str(FieldEvent, "sync.start").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	want := map[string]string{
		"component": "jobs",
		"job_id":    "job-42",
		"region":    "US",
		"event":     "sync.start",
		"service":   "test",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("field %s = %v, want %s", k, entry[k], v)
		}
	}
}

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("global level = %v, want warn", zerolog.GlobalLevel())
	}
	l := WithComponent("x")
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info entry written at warn level: %s", buf.String())
	}
}
