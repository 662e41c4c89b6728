// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package region loads the table of supported catalog regions.
package region

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/hashicorp/go-version"
)

// Auto is the region code that lets the catalog pick the region from the
// caller's address.
const Auto = "AUTO"

//go:embed data/plutotv.xml
var bundled []byte

// ErrUnknownRegion is returned for region codes missing from the table.
var ErrUnknownRegion = errors.New("unknown region")

// Region describes one catalog region.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
	IP   string `json:"ip,omitempty"` // X-Forwarded-For value, empty for AUTO
	TIDs string `json:"tids"`
}

// Table is an immutable set of regions.
type Table struct {
	version *version.Version
	regions map[string]Region
}

type xmlRegions struct {
	XMLName xml.Name    `xml:"regions"`
	Version string      `xml:"version,attr"`
	Regions []xmlRegion `xml:"region"`
}

type xmlRegion struct {
	Country string `xml:"country,attr"`
	Name    string `xml:"name,attr"`
	IP      string `xml:"ip,attr"`
	TIDs    string `xml:"tids,attr"`
}

func autoRegion() Region {
	return Region{Code: Auto, Name: "* Automatic *", IP: "", TIDs: "0"}
}

// Parse reads a region data file. Entries lacking a country, ip or tids
// attribute are dropped. A missing version attribute is treated as 0.0.0.
func Parse(r io.Reader) (*Table, error) {
	var doc xmlRegions
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode region data: %w", err)
	}

	raw := doc.Version
	if raw == "" {
		raw = "0.0.0"
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("region data version %q: %w", doc.Version, err)
	}

	t := &Table{version: v, regions: map[string]Region{Auto: autoRegion()}}
	for _, e := range doc.Regions {
		code := strings.ToUpper(strings.TrimSpace(e.Country))
		if code == "" || e.IP == "" || e.TIDs == "" {
			continue
		}
		name := e.Name
		if name == "" {
			name = code
		}
		t.regions[code] = Region{Code: code, Name: name, IP: e.IP, TIDs: e.TIDs}
	}
	return t, nil
}

// Bundled returns the region table compiled into the binary.
func Bundled() (*Table, error) {
	return Parse(bytes.NewReader(bundled))
}

// Load returns the bundled table, or the operator file at overridePath when
// it carries a newer version. An unreadable override is logged and ignored.
func Load(overridePath string) (*Table, error) {
	base, err := Bundled()
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return base, nil
	}

	logger := log.WithComponent("region")
	f, err := os.Open(overridePath) // #nosec G304 -- operator supplied path
	if err != nil {
		logger.Warn().Err(err).Str("event", "region.override_unreadable").Str(log.FieldPath, overridePath).Msg("using bundled region data")
		return base, nil
	}
	defer func() { _ = f.Close() }()

	override, err := Parse(f)
	if err != nil {
		logger.Warn().Err(err).Str("event", "region.override_invalid").Str(log.FieldPath, overridePath).Msg("using bundled region data")
		return base, nil
	}
	if !override.version.GreaterThan(base.version) {
		logger.Info().
			Str("event", "region.override_outdated").
			Str("bundled", base.version.String()).
			Str("override", override.version.String()).
			Msg("bundled region data is newer")
		return base, nil
	}
	logger.Info().
		Str("event", "region.override_loaded").
		Str("version", override.version.String()).
		Int("regions", override.Len()).
		Msg("region data loaded")
	return override, nil
}

// Version returns the data file version.
func (t *Table) Version() string { return t.version.String() }

// Len returns the number of regions including AUTO.
func (t *Table) Len() int { return len(t.regions) }

// Lookup returns the region for code (case-insensitive).
func (t *Table) Lookup(code string) (Region, error) {
	r, ok := t.regions[strings.ToUpper(code)]
	if !ok {
		return Region{}, fmt.Errorf("%w: %s", ErrUnknownRegion, code)
	}
	return r, nil
}

// All returns AUTO followed by the remaining regions sorted by name.
func (t *Table) All() []Region {
	out := make([]Region, 0, len(t.regions))
	for code, r := range t.regions {
		if code != Auto {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return append([]Region{t.regions[Auto]}, out...)
}
