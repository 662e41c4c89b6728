// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID  = "request_id"
	FieldJobID      = "job_id"
	FieldServiceRef = "service_ref"
	FieldChannelID  = "channel_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldRegion    = "region"
	FieldStage     = "stage"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldProgress = "progress"

	// Path / URL fields
	FieldPath     = "path"
	FieldURL      = "url"
	FieldEndpoint = "endpoint"
)
