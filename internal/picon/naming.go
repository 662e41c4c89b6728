// SPDX-License-Identifier: MIT

// Package picon downloads channel logos into the receiver's picon folder.
package picon

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Mode selects how picon files are named.
type Mode string

const (
	// ModeSRP names the file after the service reference.
	ModeSRP Mode = "srp"
	// ModeName names the file after the channel name.
	ModeName Mode = "name"
	// ModeSNP names the file after the normalized channel name.
	ModeSNP Mode = "snp"
)

// ParseMode parses a picon naming mode. The empty string yields ModeSRP.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSRP, ModeName, ModeSNP:
		return m, nil
	case "":
		return ModeSRP, nil
	default:
		return "", fmt.Errorf("unknown picon mode %q", s)
	}
}

// BaseName returns the picon file name without extension.
func BaseName(mode Mode, serviceRef, name string) string {
	switch mode {
	case ModeName:
		return strings.ReplaceAll(name, "/", "_")
	case ModeSNP:
		return snp(name)
	default:
		return strings.ReplaceAll(serviceRef, ":", "_")
	}
}

// LogoURL returns the sized variant of a catalog logo path.
func LogoURL(path string) string {
	return path + "?w=220&h=132"
}

var snpReplacer = strings.NewReplacer("&", "and", "+", "plus", "*", "star")

func snp(name string) string {
	decomposed := norm.NFKD.String(name)
	var ascii strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}
	s := strings.ToLower(snpReplacer.Replace(ascii.String()))
	var out strings.Builder
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			out.WriteRune(r)
		}
	}
	return out.String()
}
