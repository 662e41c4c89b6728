// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package numbering

import (
	"fmt"
	"strings"

	"github.com/ManuGH/plutosync/internal/catalog"
)

// Policy selects how channel numbers are derived.
type Policy string

const (
	// PolicyOriginal keeps upstream numbers where possible.
	PolicyOriginal Policy = "original"
	// PolicyPlugin always uses registry allocated numbers.
	PolicyPlugin Policy = "plugin"
)

// Partner categories whose channels carry no usable upstream number.
const (
	CategorySamsung = "Samsung"
	CategoryXiaomi  = "Xiaomi TV"
)

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyOriginal, PolicyPlugin:
		return p, nil
	case "":
		return PolicyOriginal, nil
	default:
		return "", fmt.Errorf("unknown channel numbering %q", s)
	}
}

// ForChannel returns the bouquet number of ch under policy.
//
// With PolicyOriginal, partner channels use the last four identifier
// characters (uppercased, leading zeros removed) and other channels use
// their upstream number in hex; channels without one fall back to the
// registry. PolicyPlugin always uses the registry.
func ForChannel(policy Policy, reg *Registry, ch catalog.Channel) (string, error) {
	if policy == PolicyOriginal {
		switch ch.Category {
		case CategorySamsung, CategoryXiaomi:
			return partnerNumber(ch.ID), nil
		default:
			if n := ch.Number.Int(); n != 0 {
				return FormatNumber(n), nil
			}
		}
	}
	return reg.Assign(ch.ID, ch.Name)
}

func partnerNumber(id string) string {
	tail := id
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return strings.TrimLeft(strings.ToUpper(tail), "0")
}
