package dune

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Field describes where a metric lives in a result row whose exact shape is not
// known up front.
type Field struct {
	// Keys are tried first, in order, by exact name.
	Keys []string
	// Contains are key-name fragments matched case-insensitively.
	Contains []string
	// Exact limits the lookup to Keys and keeps zero values, for metrics
	// where zero is a real answer.
	Exact bool
}

// Extract locates a numeric value in row: by exact key, then by key fragment,
// then the first numeric value in column order. An Exact field stops after the
// keys. It returns the value, the key it was read from, and whether anything
// matched.
func Extract(row Row, columns []string, f Field) (float64, string, bool) {
	for _, key := range f.Keys {
		v, ok := row[key]
		if !ok {
			continue
		}
		// zero and empty values count as missing
		if n, ok := toFloat(v, true); ok && (n != 0 || f.Exact) {
			return n, key, true
		}
	}
	if f.Exact {
		return 0, "", false
	}

	keys := orderedKeys(row, columns)

	if len(f.Contains) > 0 {
		for _, key := range keys {
			n, ok := toFloat(row[key], false)
			if !ok {
				continue
			}
			lower := strings.ToLower(key)
			for _, frag := range f.Contains {
				if strings.Contains(lower, strings.ToLower(frag)) {
					return n, key, true
				}
			}
		}
	}

	for _, key := range keys {
		if n, ok := toFloat(row[key], false); ok {
			return n, key, true
		}
	}
	return 0, "", false
}

// orderedKeys lists the row keys in column order; keys missing from columns
// follow in lexical order so the scan is deterministic.
func orderedKeys(row Row, columns []string) []string {
	keys := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, c := range columns {
		if _, ok := row[c]; ok && !seen[c] {
			keys = append(keys, c)
			seen[c] = true
		}
	}
	rest := make([]string, 0, len(row)-len(keys))
	for k := range row {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func toFloat(v any, allowString bool) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		if !allowString {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// String returns the first non-empty value among keys rendered as a string.
func (r Row) String(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			b, err := json.Marshal(v)
			if err == nil {
				return string(b)
			}
		}
	}
	return ""
}

// Float returns the first numeric value among keys; numeric strings are accepted.
func (r Row) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		if n, ok := toFloat(r[k], true); ok {
			return n, true
		}
	}
	return 0, false
}

// Int is Float truncated to an integer.
func (r Row) Int(keys ...string) (int64, bool) {
	n, ok := r.Float(keys...)
	return int64(n), ok
}

// Time parses the first usable timestamp among keys. Dune renders timestamps as
// "2006-01-02 15:04:05.000 UTC"; RFC 3339 and unix seconds are accepted too.
func (r Row) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return time.Unix(int64(v), 0).UTC(), true
		case string:
			if t, ok := parseTime(v); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.000 UTC",
	"2006-01-02 15:04:05 UTC",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
