// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexInt decodes an integer that the catalog sends either as a JSON
// number or as a numeric string. Anything else decodes as 0.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			*f = FlexInt(n)
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) {
			*f = FlexInt(int(v))
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	*f = FlexInt(int(v))
	return nil
}

// Int returns the value as an int.
func (f FlexInt) Int() int { return int(f) }

// List decodes a JSON array element by element. Elements that fail to
// decode are dropped and a non-array value decodes as an empty list.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}
