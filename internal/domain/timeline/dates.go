package timeline

import (
	"strings"
	"time"
)

// isoDate is the canonical date layout used across the pipeline.
const isoDate = "2006-01-02"

// dateLayouts are tried in order against string-valued dates. The first
// layout that parses wins.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
}

// Day-offset values are interpreted as days since the Unix epoch and are
// only accepted inside a plausible calendar range, so stray numeric codes
// in a date column do not turn into dates.
var (
	dayOffsetEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	dayOffsetMin   = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	dayOffsetMax   = time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC)
)

// ResolveDate parses one heterogeneous date value into a calendar date.
// Accepted inputs: time.Time, a string in one of dateLayouts, or a numeric
// day offset from 1970-01-01. The second return is false when no rule
// applies; callers must drop the record rather than defaulting the date.
func ResolveDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return truncateToDay(v), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return truncateToDay(*v), true
	case string:
		return resolveString(v)
	case float64:
		return resolveOffset(int64(v))
	case float32:
		return resolveOffset(int64(v))
	case int:
		return resolveOffset(int64(v))
	case int32:
		return resolveOffset(int64(v))
	case int64:
		return resolveOffset(v)
	}
	return time.Time{}, false
}

// ResolveDates resolves a batch of values, producing one miss per failed
// entry. A bad value never poisons the rest of the batch.
func ResolveDates(values []any) ([]time.Time, []bool) {
	dates := make([]time.Time, len(values))
	ok := make([]bool, len(values))
	for i, v := range values {
		dates[i], ok[i] = ResolveDate(v)
	}
	return dates, ok
}

func resolveString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateToDay(t), true
		}
	}
	// Numeric strings fall back to day-offset interpretation.
	if isAllDigits(s) {
		var n int64
		for _, c := range s {
			n = n*10 + int64(c-'0')
		}
		return resolveOffset(n)
	}
	return time.Time{}, false
}

func resolveOffset(days int64) (time.Time, bool) {
	t := dayOffsetEpoch.AddDate(0, 0, int(days))
	if t.Before(dayOffsetMin) || t.After(dayOffsetMax) {
		return time.Time{}, false
	}
	return t, true
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// resolveFirst resolves the first of the named columns that yields a valid
// date. This implements the per-kind date fallback chains.
func resolveFirst(r Record, cols ...string) (time.Time, bool) {
	for _, col := range cols {
		if t, ok := ResolveDate(r[col]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
