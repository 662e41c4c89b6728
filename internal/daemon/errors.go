// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingRuntime is returned when an App is run without components.
	ErrMissingRuntime = errors.New("runtime is required")

	// ErrMissingConfig is returned when an App is run without a config holder.
	ErrMissingConfig = errors.New("config holder is required")
)
