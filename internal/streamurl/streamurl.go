// SPDX-License-Identifier: MIT

// Package streamurl builds the playable stream URLs written into bouquet
// service lines.
package streamurl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuGH/plutosync/internal/catalog"
)

// Mode selects the stream URL flavour of live channels.
type Mode string

const (
	ModeOriginal Mode = "original"
	ModeRoku     Mode = "roku"
	ModeSamsung  Mode = "samsung"
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModeSamsung

// WebDeviceID is the fixed device id sent with original mode URLs.
const WebDeviceID = "bc83a564-4b91-11ef-8a44-83c5e90e038f"

const stitcherBase = "https://stitcher-ipv4.pluto.tv/v1/stitch/embed/hls/channel/"

var rokuParams = []string{
	"deviceModel=web",
	"deviceVersion=1.0",
	"appVersion=1.0",
	"deviceType=rokuChannel",
	"deviceMake=rokuChannel",
	"deviceDNT=1",
}

var samsungParams = []string{
	"deviceMake=samsung",
	"deviceModel=samsung",
	"deviceVersion=unknown",
	"appVersion=unknown",
	"deviceLat=0",
	"deviceLon=0",
	"deviceDNT=%7BTARGETOPT%7D",
	"deviceId=%7BPSID%7D",
	"advertisingId=%7BPSID%7D",
	"us_privacy=1YNY",
	"samsung_app_domain=%7BAPP_DOMAIN%7D",
	"samsung_app_name=%7BAPP_NAME%7D",
	"profileLimit=",
	"profileFloor=",
	"embedPartner=samsung-tvplus",
}

// ParseMode parses a live mode name. The empty string yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOriginal, ModeRoku, ModeSamsung:
		return m, nil
	case "":
		return DefaultMode, nil
	default:
		return "", fmt.Errorf("unknown live mode %q", s)
	}
}

// Build returns the stream URL of the channel identifier. It reports false
// when mode is ModeOriginal and no HLS variant exists, or the mode is
// unknown.
func Build(identifier string, urls []catalog.StitchedURL, mode Mode) (string, bool) {
	switch mode {
	case ModeOriginal:
		for _, u := range urls {
			if strings.EqualFold(u.Type, "hls") {
				return UpdateQuery(u.URL, [][2]string{
					{"deviceType", "web"},
					{"deviceMake", "Chrome"},
					{"deviceModel", "web"},
					{"appName", "web"},
					{"deviceId", WebDeviceID},
				}), true
			}
		}
		return "", false
	case ModeRoku:
		head := stitcherBase + identifier + "/master.m3u8?deviceId=PSID"
		return strings.Join(append([]string{head}, rokuParams...), "&"), true
	case ModeSamsung:
		head := stitcherBase + identifier + "/master.m3u8?deviceType=samsung-tvplus"
		return strings.Join(append([]string{head}, samsungParams...), "&"), true
	default:
		return "", false
	}
}

// VOD returns the playback URL of a movie or episode stream.
func VOD(rawURL, deviceID string) string {
	return UpdateQuery(rawURL, [][2]string{
		{"deviceId", deviceID},
		{"sid", deviceID},
		{"deviceType", "web"},
		{"deviceMake", "Firefox"},
		{"deviceModel", "Firefox"},
		{"appName", "web"},
	})
}

// UpdateQuery overrides query keys of rawURL with the non-empty values.
// Existing keys keep their position, new keys are appended in order. The
// rebuilt query is form encoded with "=" and "&" left intact.
func UpdateQuery(rawURL string, values [][2]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	var keys []string
	query := map[string]string{}
	set := func(k, v string) {
		if _, ok := query[k]; !ok {
			keys = append(keys, k)
		}
		query[k] = v
	}

	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		set(unquotePlus(k), unquotePlus(v))
	}
	for _, kv := range values {
		if kv[1] != "" {
			set(kv[0], kv[1])
		}
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+query[k])
	}
	u.RawQuery = quotePlus(strings.Join(parts, "&"))
	u.ForceQuery = false
	return u.String()
}

func unquotePlus(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return strings.ReplaceAll(s, "+", " ")
	}
	return out
}

const upperhex = "0123456789ABCDEF"

// quotePlus percent-encodes s like a form value but keeps "=" and "&".
func quotePlus(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~' || c == '=' || c == '&':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}
