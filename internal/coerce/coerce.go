// Package coerce converts loosely typed values, as decoded from JSON request
// bodies or returned by database drivers, into concrete Go types.
package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// extraDateLayouts cover PostgreSQL text output that cast does not parse.
var extraDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ISOLayout is UTC ISO-8601 with millisecond precision.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Time converts a time value or a date-like string. Numbers are not treated
// as Unix timestamps.
func Time(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time, *time.Time:
		if p, ok := x.(*time.Time); ok && p == nil {
			return time.Time{}, false
		}
		t, err := cast.ToTimeE(x)
		return t, err == nil
	case string:
		s := strings.TrimSpace(x)
		if len(s) < len("2006-01-02") {
			return time.Time{}, false
		}
		if t, err := cast.StringToDate(s); err == nil {
			return t, true
		}
		for _, layout := range extraDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Float converts numeric values and numeric strings. NaN and infinities are
// rejected, as are booleans and nil.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		v = strings.TrimSpace(x)
	case []byte:
		v = strings.TrimSpace(string(x))
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNumber reports whether v has a Go numeric type. Numeric strings do not count.
func IsNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

// Bool converts a bool or a boolean string.
func Bool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := cast.ToBoolE(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

// Slice returns the elements of an array value. ok is false for scalars.
func Slice(v any) ([]any, bool) {
	switch x := v.(type) {
	case []string:
		return toAny(x), true
	case []float64:
		return toAny(x), true
	case []int:
		return toAny(x), true
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, false
	}
	return items, true
}

func toAny[T any](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// String renders v for display and comparison. Times use RFC 3339 with
// nanoseconds, floats their shortest exact form, and nil the empty string.
func String(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
