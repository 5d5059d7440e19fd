// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package block

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// rawText returns a JSON string's value, "" for absent or null, and the raw
// JSON text for any other value.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parsePercentage reads the editor's completion percentage.
// Falsy values (absent, null, "", 0, false, empty list or object) and
// anything not integer-like yield def.
func parsePercentage(raw json.RawMessage, def int) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return def
	}

	v, err := decodeScalar(raw)
	if err != nil {
		return def
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return def
		}
		n, ok := parseIntString(x)
		if !ok {
			return def
		}
		return n
	case json.Number:
		if f, err := x.Float64(); err == nil && f == 0 {
			return def
		}
		n, ok := numberToInt(x)
		if !ok {
			return def
		}
		return n
	case bool:
		if !x {
			return def
		}
		return 1
	default:
		return def
	}
}

// parseProgress reads a reported progress value: absent means 0, numbers are
// truncated toward zero, strings must hold a base-10 integer.
func parseProgress(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, true
	}

	v, err := decodeScalar(raw)
	if err != nil {
		return 0, false
	}
	switch x := v.(type) {
	case json.Number:
		return numberToInt(x)
	case string:
		return parseIntString(x)
	default:
		return 0, false
	}
}

func parseIntString(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// decodeScalar decodes raw keeping numbers as json.Number so integers
// beyond float64 precision survive.
func decodeScalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// numberToInt accepts any JSON number that fits an int once truncated toward
// zero, the same range parseIntString accepts for strings.
func numberToInt(n json.Number) (int, bool) {
	if i, err := strconv.ParseInt(n.String(), 10, strconv.IntSize); err == nil {
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return truncate(f)
}

func truncate(f float64) (int, bool) {
	t := math.Trunc(f)
	// -float64(math.MinInt) is the first value past math.MaxInt.
	if math.IsNaN(t) || t >= -float64(math.MinInt) || t < float64(math.MinInt) {
		return 0, false
	}
	return int(t), true
}
