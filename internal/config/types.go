// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"time"
)

// Default values.
const (
	DefaultDataDir        = "/etc/enigma2"
	DefaultPiconPath      = "/usr/share/enigma2/picon"
	DefaultLiveMode       = "samsung"
	DefaultNumbering      = "original"
	DefaultPiconMode      = "srp"
	DefaultServiceType    = 4097
	DefaultUpdateInterval = 5
	DefaultListen         = ":8089"
	DefaultCacheTTL       = 30 * time.Minute

	NumberStoreJSON   = "json"
	NumberStoreSQLite = "sqlite"
	NumberStoreMemory = "memory"
)

// Accepted enumeration values.
var (
	LiveModes        = []string{"original", "roku", "samsung"}
	NumberingModes   = []string{"original", "plugin"}
	PiconModes       = []string{"srp", "name", "snp"}
	ServiceTypes     = []int{4097, 5001, 5002}
	NumberStores     = []string{NumberStoreJSON, NumberStoreSQLite, NumberStoreMemory}
	TelemetryExports = []string{"grpc", "http"}
)

// RegionConfig selects one catalog region and the service type of its bouquet.
type RegionConfig struct {
	Region      string `yaml:"region"`
	ServiceType int    `yaml:"serviceType"`
}

// NumberStoreConfig selects where the channel number registry is persisted.
type NumberStoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// OpenWebIFConfig points at the receiver's web interface used for service
// list reloads. An empty BaseURL disables host reloads.
type OpenWebIFConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EPGConfig controls where synthesized guide data is written.
type EPGConfig struct {
	Dir string `yaml:"dir"`
}

// APIConfig configures the control API.
type APIConfig struct {
	Listen    string `yaml:"listen"`
	RateLimit int    `yaml:"rateLimit"` // requests per minute per client IP
}

// CacheConfig configures the VOD response cache.
type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr"`
	TTL       time.Duration `yaml:"ttl"`
}

// UserdataConfig configures the resume point and favorites store.
type UserdataConfig struct {
	Dir string `yaml:"dir"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	DataDir            string         `yaml:"dataDir"`
	Regions            []RegionConfig `yaml:"bouquets"`
	RegionFile         string         `yaml:"regionFile"`
	LiveMode           string         `yaml:"liveMode"`
	Numbering          string         `yaml:"channelNumbering"`
	PiconMode          string         `yaml:"piconMode"`
	PiconPath          string         `yaml:"piconPath"`
	ForcePiconDownload bool           `yaml:"forcePiconDownload"`
	AddDescriptions    bool           `yaml:"addDescriptions"`
	AddSamsung         bool           `yaml:"addSamsung"`
	AddXiaomi          bool           `yaml:"addXiaomi"`
	UpdateInterval     int            `yaml:"updateInterval"` // hours, 0 disables

	NumberStore NumberStoreConfig `yaml:"numberStore"`
	OpenWebIF   OpenWebIFConfig   `yaml:"openWebIF"`
	EPG         EPGConfig         `yaml:"epg"`
	API         APIConfig         `yaml:"api"`
	Cache       CacheConfig       `yaml:"cache"`
	Userdata    UserdataConfig    `yaml:"userdata"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`
}

// RegionCodes returns the configured region codes in order.
func (c AppConfig) RegionCodes() []string {
	codes := make([]string, 0, len(c.Regions))
	for _, r := range c.Regions {
		codes = append(codes, r.Region)
	}
	return codes
}

// ServiceTypeFor returns the configured service type for a region.
func (c AppConfig) ServiceTypeFor(region string) int {
	for _, r := range c.Regions {
		if r.Region == region {
			return r.ServiceType
		}
	}
	return DefaultServiceType
}

// NumbersPath returns the path of the channel number store.
func (c AppConfig) NumbersPath() string {
	if c.NumberStore.Path != "" {
		return c.NumberStore.Path
	}
	if c.NumberStore.Backend == NumberStoreSQLite {
		return filepath.Join(c.DataDir, "PlutoTV_numbers.db")
	}
	return filepath.Join(c.DataDir, "PlutoTV_numbers.json")
}

// TimerPath returns the path of the last-run timestamp file.
func (c AppConfig) TimerPath() string {
	return filepath.Join(c.DataDir, "PlutoTV_timer")
}

// EPGDir returns the directory receiving XMLTV output.
func (c AppConfig) EPGDir() string {
	if c.EPG.Dir != "" {
		return c.EPG.Dir
	}
	return filepath.Join(c.DataDir, "epgimport")
}

// UpdateEvery returns the update interval as a duration.
func (c AppConfig) UpdateEvery() time.Duration {
	return time.Duration(c.UpdateInterval) * time.Hour
}
