// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "test", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "test", ExporterType: "invalid"})
	require.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", Sampler(1).Description())
	assert.Equal(t, "AlwaysOffSampler", Sampler(0).Description())
	assert.Contains(t, Sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestSpanAttributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "sync.region")
	span.SetAttributes(RegionAttributes("DE", 12, 300)...)
	span.SetAttributes(ErrorAttributes("exhausted")...)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, "DE", got[RegionKey].AsString())
	assert.Equal(t, int64(12), got[ChannelsKey].AsInt64())
	assert.Equal(t, int64(300), got[EventsKey].AsInt64())
	assert.True(t, got[ErrorKey].AsBool())
}

func TestSyncAttributes(t *testing.T) {
	attrs := SyncAttributes("done", 2, 1500)
	require.Len(t, attrs, 3)
	assert.Equal(t, attribute.String(SyncStateKey, "done"), attrs[0])
}
