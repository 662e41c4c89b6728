// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by the sync spans.
const (
	RegionKey    = "sync.region"
	ChannelsKey  = "sync.channels"
	EventsKey    = "sync.events"
	SyncStateKey = "sync.state"
	SyncRegions  = "sync.regions"
	DurationKey  = "sync.duration_ms"
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RegionAttributes describes the outcome of one region.
func RegionAttributes(region string, channels, events int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RegionKey, region),
		attribute.Int(ChannelsKey, channels),
		attribute.Int(EventsKey, events),
	}
}

// SyncAttributes describes a finished pass.
func SyncAttributes(state string, regions int, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SyncStateKey, state),
		attribute.Int(SyncRegions, regions),
		attribute.Int64(DurationKey, durationMS),
	}
}

// ErrorAttributes marks a span as failed.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
