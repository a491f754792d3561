package rpcschema

import (
	"math"
	"strings"
	"time"
)

// FormatFunc is a value predicate attached to a "format" keyword. It receives
// the candidate value regardless of its JSON type.
type FormatFunc func(v any) bool

func builtinFormats() map[string]FormatFunc {
	return map[string]FormatFunc{
		FormatIDate:    IsDateLike,
		FormatBuffer:   IsBufferValue,
		FormatDateTime: isDateTime,
	}
}

// dateLayouts are tried in order when a date-like value is a string.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
}

// IsDateLike reports whether v denotes a well defined point in time: a
// time.Time, a date string in one of the accepted layouts, or an integral
// number of milliseconds since the Unix epoch.
func IsDateLike(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return !t.IsZero()
	case *time.Time:
		return t != nil && !t.IsZero()
	case string:
		_, ok := parseDate(t)
		return ok
	}
	f, ok := toFloat(v)
	if !ok {
		return false
	}
	// ECMAScript time values are bounded by +-8.64e15 ms.
	return f == math.Trunc(f) && math.Abs(f) <= 8.64e15
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsBufferValue reports whether v is acceptable where a raw binary field is
// declared: the payload itself before extraction, or its non-negative
// integer length once it has been spliced out of the envelope.
func IsBufferValue(v any) bool {
	if _, ok := v.([]byte); ok {
		return true
	}
	f, ok := toFloat(v)
	return ok && f >= 0 && f == math.Trunc(f)
}

func isDateTime(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}
