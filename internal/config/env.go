// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/rs/zerolog"
)

// lookupEnv returns the value of key when it is set and non-empty. Absent
// or empty variables are logged as falling back to the default.
func lookupEnv(logger zerolog.Logger, key string, def any) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		msg := "using default value"
		if ok {
			msg = "using default value (environment variable is empty)"
		}
		logger.Debug().
			Str("key", key).
			Interface("default", def).
			Str("source", "default").
			Msg(msg)
		return "", false
	}
	return v, true
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "token")
}

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev.Bool("sensitive", true)
	} else {
		ev.Str("value", v)
	}
	ev.Msg("using environment variable")
	return v
}

// ParseInt reads an integer from environment variable or returns default value.
// Parse errors fall back to the default with a warning.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	return i
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Float64("value", f).Str("source", "environment").Msg("using environment variable")
	return f
}

// ParseDuration reads a duration in Go duration format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key, defaultValue)
	if !ok {
		return defaultValue
	}
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		b = true
	case "false", "0", "no":
		b = false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Bool("value", b).Str("source", "environment").Msg("using environment variable")
	return b
}

// ParseRegions parses a bouquet list of the form "DE:4097,US:5001". The
// service type may be omitted ("DE,US") and defaults to 4097.
func ParseRegions(value string) ([]RegionConfig, error) {
	var out []RegionConfig
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		code, st, found := strings.Cut(item, ":")
		rc := RegionConfig{Region: strings.ToUpper(strings.TrimSpace(code)), ServiceType: DefaultServiceType}
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(st))
			if err != nil {
				return nil, fmt.Errorf("bouquet %q: invalid service type: %w", item, err)
			}
			rc.ServiceType = n
		}
		out = append(out, rc)
	}
	return out, nil
}
