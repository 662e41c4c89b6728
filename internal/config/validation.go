// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/ManuGH/plutosync/internal/validate"
)

// Validate checks the configuration and returns a validate.ValidationError
// listing every problem found.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("dataDir", cfg.DataDir)
	v.OneOf("liveMode", cfg.LiveMode, LiveModes)
	v.OneOf("channelNumbering", cfg.Numbering, NumberingModes)
	v.OneOf("piconMode", cfg.PiconMode, PiconModes)
	v.NotEmpty("piconPath", cfg.PiconPath)
	v.Range("updateInterval", cfg.UpdateInterval, 0, 24)
	v.OneOf("numberStore.backend", cfg.NumberStore.Backend, NumberStores)
	v.URL("openWebIF.baseURL", cfg.OpenWebIF.BaseURL, []string{"http", "https"}, true)
	v.ListenAddr("api.listen", cfg.API.Listen)
	v.NonNegative("api.rateLimit", cfg.API.RateLimit)
	v.OneOf("logLevel", cfg.LogLevel, validate.LogLevels())

	seen := make(map[string]bool, len(cfg.Regions))
	for i, r := range cfg.Regions {
		field := fmt.Sprintf("bouquets[%d]", i)
		v.NotEmpty(field+".region", r.Region)
		if seen[r.Region] {
			v.AddError(field+".region", "duplicate region", r.Region)
		}
		seen[r.Region] = true
		if !slices.Contains(ServiceTypes, r.ServiceType) {
			v.AddError(field+".serviceType", "service type must be one of 4097, 5001, 5002", strconv.Itoa(r.ServiceType))
		}
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.ExporterType, TelemetryExports)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.samplingRate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}
