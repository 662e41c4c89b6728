// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. configPath may be empty
// for an environment-only configuration.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the configuration file path, if any.
func (l *Loader) Path() string { return l.configPath }

// Load loads configuration with precedence: ENV > File > Defaults, then
// normalizes and validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.mergeEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("merge environment: %w", err)
	}

	normalize(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:         DefaultDataDir,
		LiveMode:        DefaultLiveMode,
		Numbering:       DefaultNumbering,
		PiconMode:       DefaultPiconMode,
		PiconPath:       DefaultPiconPath,
		AddDescriptions: true,
		AddSamsung:      true,
		AddXiaomi:       false,
		UpdateInterval:  DefaultUpdateInterval,
		NumberStore:     NumberStoreConfig{Backend: NumberStoreJSON},
		API:             APIConfig{Listen: DefaultListen, RateLimit: 120},
		Cache:           CacheConfig{TTL: DefaultCacheTTL},
		Telemetry:       TelemetryConfig{ExporterType: "grpc", SamplingRate: 1.0, Environment: "production"},
		LogLevel:        "info",
		LogService:      "plutosync",
	}
}

// loadFile decodes the YAML file strictly on top of cfg. Keys absent from
// the file keep their current value.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) track(key string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

// mergeEnv applies PLUTOSYNC_* environment overrides.
func (l *Loader) mergeEnv(cfg *AppConfig) error {
	cfg.DataDir = ParseString(l.track("PLUTOSYNC_DATA"), cfg.DataDir)

	if v, ok := os.LookupEnv(l.track("PLUTOSYNC_BOUQUETS")); ok && strings.TrimSpace(v) != "" {
		regions, err := ParseRegions(v)
		if err != nil {
			return fmt.Errorf("PLUTOSYNC_BOUQUETS: %w", err)
		}
		cfg.Regions = regions
	}

	cfg.RegionFile = ParseString(l.track("PLUTOSYNC_REGION_FILE"), cfg.RegionFile)
	cfg.LiveMode = ParseString(l.track("PLUTOSYNC_LIVE_MODE"), cfg.LiveMode)
	cfg.Numbering = ParseString(l.track("PLUTOSYNC_CHANNEL_NUMBERING"), cfg.Numbering)
	cfg.PiconMode = ParseString(l.track("PLUTOSYNC_PICON_MODE"), cfg.PiconMode)
	cfg.PiconPath = ParseString(l.track("PLUTOSYNC_PICON_PATH"), cfg.PiconPath)
	cfg.ForcePiconDownload = ParseBool(l.track("PLUTOSYNC_FORCE_PICONS"), cfg.ForcePiconDownload)
	cfg.AddDescriptions = ParseBool(l.track("PLUTOSYNC_DESCRIPTIONS"), cfg.AddDescriptions)
	cfg.AddSamsung = ParseBool(l.track("PLUTOSYNC_ADD_SAMSUNG"), cfg.AddSamsung)
	cfg.AddXiaomi = ParseBool(l.track("PLUTOSYNC_ADD_XIAOMI"), cfg.AddXiaomi)
	cfg.UpdateInterval = ParseInt(l.track("PLUTOSYNC_UPDATE_INTERVAL"), cfg.UpdateInterval)

	cfg.NumberStore.Backend = ParseString(l.track("PLUTOSYNC_NUMBER_STORE"), cfg.NumberStore.Backend)
	cfg.NumberStore.Path = ParseString(l.track("PLUTOSYNC_NUMBER_STORE_PATH"), cfg.NumberStore.Path)

	cfg.OpenWebIF.BaseURL = ParseString(l.track("PLUTOSYNC_OWI_BASE"), cfg.OpenWebIF.BaseURL)
	cfg.OpenWebIF.Username = ParseString(l.track("PLUTOSYNC_OWI_USER"), cfg.OpenWebIF.Username)
	cfg.OpenWebIF.Password = ParseString(l.track("PLUTOSYNC_OWI_PASSWORD"), cfg.OpenWebIF.Password)
	cfg.OpenWebIF.Timeout = ParseDuration(l.track("PLUTOSYNC_OWI_TIMEOUT"), cfg.OpenWebIF.Timeout)

	cfg.EPG.Dir = ParseString(l.track("PLUTOSYNC_EPG_DIR"), cfg.EPG.Dir)
	cfg.API.Listen = ParseString(l.track("PLUTOSYNC_LISTEN"), cfg.API.Listen)
	cfg.API.RateLimit = ParseInt(l.track("PLUTOSYNC_RATE_LIMIT"), cfg.API.RateLimit)
	cfg.Cache.RedisAddr = ParseString(l.track("PLUTOSYNC_REDIS_ADDR"), cfg.Cache.RedisAddr)
	cfg.Cache.TTL = ParseDuration(l.track("PLUTOSYNC_CACHE_TTL"), cfg.Cache.TTL)
	cfg.Userdata.Dir = ParseString(l.track("PLUTOSYNC_USERDATA_DIR"), cfg.Userdata.Dir)

	cfg.Telemetry.Enabled = ParseBool(l.track("PLUTOSYNC_OTEL_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString(l.track("PLUTOSYNC_OTEL_EXPORTER"), cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString(l.track("PLUTOSYNC_OTEL_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = ParseString(l.track("PLUTOSYNC_OTEL_ENVIRONMENT"), cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = ParseFloat(l.track("PLUTOSYNC_OTEL_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)

	cfg.LogLevel = ParseString(l.track("LOG_LEVEL"), cfg.LogLevel)
	cfg.LogService = ParseString(l.track("LOG_SERVICE"), cfg.LogService)
	return nil
}

func normalize(cfg *AppConfig) {
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	for i := range cfg.Regions {
		cfg.Regions[i].Region = strings.ToUpper(strings.TrimSpace(cfg.Regions[i].Region))
		if cfg.Regions[i].ServiceType == 0 {
			cfg.Regions[i].ServiceType = DefaultServiceType
		}
	}
	cfg.LiveMode = strings.ToLower(cfg.LiveMode)
	cfg.Numbering = strings.ToLower(cfg.Numbering)
	cfg.PiconMode = strings.ToLower(cfg.PiconMode)
	cfg.NumberStore.Backend = strings.ToLower(cfg.NumberStore.Backend)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
}
