// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	jobIDKey     ctxKey = "job_id"
	regionKey    ctxKey = "region"
)

// ContextWithRequestID stores the provided request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithJobID stores the provided job ID in the context.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, jobIDKey, id)
}

// ContextWithRegion stores the region currently being processed.
func ContextWithRegion(ctx context.Context, region string) context.Context {
	return withValue(ctx, regionKey, region)
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// RequestIDFromContext extracts the request ID from context if present.
func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// JobIDFromContext extracts the job ID from context if present.
func JobIDFromContext(ctx context.Context) string { return stringValue(ctx, jobIDKey) }

// RegionFromContext extracts the region from context if present.
func RegionFromContext(ctx context.Context) string { return stringValue(ctx, regionKey) }

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if rid := RequestIDFromContext(ctx); rid != "" {
		builder = builder.Str(FieldRequestID, rid)
		added = true
	}
	if jid := JobIDFromContext(ctx); jid != "" {
		builder = builder.Str(FieldJobID, jid)
		added = true
	}
	if region := RegionFromContext(ctx); region != "" {
		builder = builder.Str(FieldRegion, region)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// WithComponentFromContext returns a logger that is annotated with the component
// name and enriched with correlation fields from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}

// FromContext returns the logger stored in ctx, or the base logger enriched
// with the correlation fields of ctx.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	l := WithContext(ctx, Base())
	return &l
}
