// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bouquet renders and installs the per-region userbouquet files of
// the receiver.
package bouquet

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ServiceType is the service type field of a bouquet service line.
type ServiceType int

const (
	ServiceTypeGStreamer  ServiceType = 4097
	ServiceTypeExtPlayer  ServiceType = 5001
	ServiceTypeExtPlayer3 ServiceType = 5002
)

// DefaultServiceType is used when a region has no service type configured.
const DefaultServiceType = ServiceTypeGStreamer

// ServiceTypes lists the supported service types.
var ServiceTypes = []ServiceType{ServiceTypeGStreamer, ServiceTypeExtPlayer, ServiceTypeExtPlayer3}

// ParseServiceType parses and checks a numeric service type.
func ParseServiceType(s string) (ServiceType, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid service type %q", s)
	}
	st := ServiceType(n)
	if !st.Valid() {
		return 0, fmt.Errorf("unsupported service type %d", n)
	}
	return st, nil
}

// Valid reports whether st is one of ServiceTypes.
func (st ServiceType) Valid() bool {
	return slices.Contains(ServiceTypes, st)
}

// Channel is one resolved bouquet entry.
type Channel struct {
	ID      string
	Number  string
	Name    string
	URL     string
	LogoURL string
}

// Category groups channels under a bouquet marker.
type Category struct {
	Name     string
	Channels []Channel
}

// Bouquet is a rendered bouquet.
type Bouquet struct {
	Region string
	File   string
	Lines  []string
	// Refs maps a channel identifier to its EPG service reference.
	Refs map[string]string
}

// FileName returns the bouquet file name of region.
func FileName(region string) string {
	return "userbouquet.pluto_tv_" + strings.ToLower(region) + ".tv"
}

// Title returns the display name of the bouquet of region.
func Title(region string) string {
	return "Pluto TV " + region + " (TV)"
}

// ServiceRef returns the partial service reference of a channel.
func ServiceRef(st ServiceType, number, tids string) string {
	return fmt.Sprintf("%d:0:1:%s:%s:0:0:0:0:0", st, number, tids)
}

// EPGRef returns the service reference used to correlate guide events.
func EPGRef(serviceRef string) string {
	return serviceRef + ":0"
}

func escape(s string) string {
	return strings.ReplaceAll(s, ":", "%3A")
}

// Build renders the bouquet lines of region. Categories are numbered in
// order starting at zero; descriptions adds a #DESCRIPTION line after each
// marker and service.
func Build(region, tids string, categories []Category, st ServiceType, descriptions bool) Bouquet {
	b := Bouquet{
		Region: region,
		File:   FileName(region),
		Lines:  []string{"#NAME " + Title(region)},
		Refs:   map[string]string{},
	}
	for i, cat := range categories {
		b.Lines = append(b.Lines, fmt.Sprintf("#SERVICE 1:64:%d:0:0:0:0:0:0:0::%s", i, cat.Name))
		if descriptions {
			b.Lines = append(b.Lines, "#DESCRIPTION "+cat.Name)
		}
		for _, ch := range cat.Channels {
			ref := ServiceRef(st, ch.Number, tids)
			b.Lines = append(b.Lines, fmt.Sprintf("#SERVICE %s:%s:%s", ref, escape(ch.URL), escape(ch.Name)))
			if descriptions {
				b.Lines = append(b.Lines, "#DESCRIPTION "+ch.Name)
			}
			b.Refs[ch.ID] = EPGRef(ref)
		}
	}
	return b
}
