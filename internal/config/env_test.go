// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"no", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PLUTOSYNC_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, ParseBool("PLUTOSYNC_TEST_BOOL", tt.def))
		})
	}
}

func TestParseNumbers(t *testing.T) {
	t.Setenv("PLUTOSYNC_TEST_INT", "42")
	t.Setenv("PLUTOSYNC_TEST_BAD_INT", "forty-two")
	t.Setenv("PLUTOSYNC_TEST_DUR", "90s")
	t.Setenv("PLUTOSYNC_TEST_FLOAT", "0.25")

	assert.Equal(t, 42, ParseInt("PLUTOSYNC_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("PLUTOSYNC_TEST_BAD_INT", 1))
	assert.Equal(t, 7, ParseInt("PLUTOSYNC_TEST_UNSET", 7))
	assert.Equal(t, 90*time.Second, ParseDuration("PLUTOSYNC_TEST_DUR", time.Second))
	assert.InDelta(t, 0.25, ParseFloat("PLUTOSYNC_TEST_FLOAT", 1), 1e-9)
	assert.Equal(t, "fallback", ParseString("PLUTOSYNC_TEST_UNSET", "fallback"))
}

func TestParseRegions(t *testing.T) {
	got, err := ParseRegions("de:4097, us:5001,,AUTO")
	require.NoError(t, err)
	assert.Equal(t, []RegionConfig{
		{Region: "DE", ServiceType: 4097},
		{Region: "US", ServiceType: 5001},
		{Region: "AUTO", ServiceType: 4097},
	}, got)

	_, err = ParseRegions("DE:abc")
	require.Error(t, err)
}
