// Package sanitize turns untyped bulk-sync records into typed entries.
//
// Values arrive as decoded JSON (json.Number, string, bool, nil, maps and
// slices). Coercion mirrors how lenient clients send data: numbers may come
// as strings, relations as {"id": n} objects, flags as "yes"/"1".
package sanitize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"neurema-cms/internal/models"
)

// Int reads an integer. Strings are parsed like a base-10 integer prefix
// ("12abc" is 12); non-integral numbers are truncated toward zero.
func Int(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return intFromFloat(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return intFromFloat(f)
		}
		return parseIntPrefix(t.String())
	case string:
		return parseIntPrefix(t)
	default:
		return 0, false
	}
}

func intFromFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// parseIntPrefix accepts optional leading whitespace and sign followed by at
// least one decimal digit; anything after the digits is ignored.
func parseIntPrefix(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float reads an optional number. Native numbers keep their fraction;
// strings go through the integer-prefix parse.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case string:
		n, ok := parseIntPrefix(t)
		return float64(n), ok
	default:
		return 0, false
	}
}

var truthyStrings = map[string]bool{"true": true, "1": true, "yes": true, "y": true}

// Bool reads a flag. Null and blank strings yield fallback; numbers are
// true when non-zero; other strings are true only for true/1/yes/y.
func Bool(v any, fallback bool) bool {
	switch t := v.(type) {
	case nil:
		return fallback
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		normalized := strings.ToLower(strings.TrimSpace(t))
		if normalized == "" {
			return fallback
		}
		return truthyStrings[normalized]
	default:
		return false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Time reads an instant from a time value or a date string. Strings without
// a zone are taken as UTC. The result is normalized to UTC milliseconds.
func Time(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return models.NormalizeTime(t), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return Time(*t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return models.NormalizeTime(parsed), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// String stringifies scalars. Objects and arrays have no string reading.
func String(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case time.Time:
		return models.FormatISOTime(t), true
	default:
		return "", false
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

func optionalFloat(v any) *float64 {
	if f, ok := Float(v); ok {
		return &f
	}
	return nil
}

func optionalString(v any) *string {
	if s, ok := String(v); ok {
		return &s
	}
	return nil
}

func optionalTime(v any) *time.Time {
	if t, ok := Time(v); ok {
		return &t
	}
	return nil
}
