// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, "samsung", cfg.LiveMode)
	assert.Equal(t, "original", cfg.Numbering)
	assert.Equal(t, "srp", cfg.PiconMode)
	assert.Equal(t, DefaultPiconPath, cfg.PiconPath)
	assert.True(t, cfg.AddDescriptions)
	assert.True(t, cfg.AddSamsung)
	assert.False(t, cfg.AddXiaomi)
	assert.Equal(t, 5, cfg.UpdateInterval)
	assert.Equal(t, 5*time.Hour, cfg.UpdateEvery())
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "/etc/enigma2/PlutoTV_timer", cfg.TimerPath())
	assert.Equal(t, "/etc/enigma2/PlutoTV_numbers.json", cfg.NumbersPath())
	assert.Equal(t, "/etc/enigma2/epgimport", cfg.EPGDir())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
dataDir: `+dataDir+`
liveMode: roku
bouquets:
  - region: de
  - region: US
    serviceType: 5001
numberStore:
  backend: sqlite
`)
	t.Setenv("PLUTOSYNC_LIVE_MODE", "original")
	t.Setenv("PLUTOSYNC_ADD_XIAOMI", "yes")

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "original", cfg.LiveMode, "env wins over file")
	assert.True(t, cfg.AddXiaomi)
	assert.Equal(t, []RegionConfig{{Region: "DE", ServiceType: 4097}, {Region: "US", ServiceType: 5001}}, cfg.Regions)
	assert.Equal(t, 5001, cfg.ServiceTypeFor("US"))
	assert.Equal(t, filepath.Join(dataDir, "PlutoTV_numbers.db"), cfg.NumbersPath())
}

func TestLoad_EnvBouquets(t *testing.T) {
	t.Setenv("PLUTOSYNC_BOUQUETS", "de:5002, AUTO")
	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"DE", "AUTO"}, cfg.RegionCodes())
	assert.Equal(t, 5002, cfg.ServiceTypeFor("DE"))
	assert.Equal(t, 4097, cfg.ServiceTypeFor("AUTO"))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "liveModus: roku\n"},
		{"multiple documents", "liveMode: roku\n---\nliveMode: samsung\n"},
		{"invalid live mode", "liveMode: tizen\n"},
		{"invalid service type", "bouquets:\n  - region: DE\n    serviceType: 1\n"},
		{"duplicate region", "bouquets:\n  - region: DE\n  - region: de\n"},
		{"bad interval", "updateInterval: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.body), "dev").Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "dev").Load()
	require.ErrorContains(t, err, "unsupported config format")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, ""), "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, "samsung", cfg.LiveMode)
}
