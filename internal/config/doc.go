// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the plutosync configuration.
//
// Precedence is ENV > YAML file > defaults. The YAML file is decoded
// strictly: unknown keys and multiple documents are rejected. A
// ConfigHolder keeps the active configuration and reloads it when the
// file changes or on explicit request (SIGHUP, API).
package config
