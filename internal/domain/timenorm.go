package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// zoneSuffixRe matches an explicit zone designator at the end of a timestamp:
// a trailing Z or a ±HH:MM / ±HHMM offset.
var zoneSuffixRe = regexp.MustCompile(`[zZ]$|[+-]\d{2}:?\d{2}$`)

// timestampLayouts are tried in order when parsing a zoned timestamp string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04-07:00",
	"2006-01-02Z07:00",
}

// NormalizeTime resolves a provider timestamp to a UTC instant. It accepts
// epoch milliseconds (int64 or float64), a time.Time, or a string. A string
// without an explicit zone designator is interpreted in the provider's local
// zone given by fallbackOffsetHours; a zero offset means the value is assumed
// to already be UTC. That assumption is a documented simplification carried
// over from the upstream feed contracts, not something to correct here.
//
// Returns nil, never an error, when the value cannot be resolved.
func NormalizeTime(raw any, fallbackOffsetHours float64) *time.Time {
	switch v := raw.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		t := v.UTC()
		return &t
	case int64:
		t := time.UnixMilli(v).UTC()
		return &t
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		t := time.UnixMilli(int64(v)).UTC()
		return &t
	case string:
		return normalizeTimeString(v, fallbackOffsetHours)
	default:
		return nil
	}
}

func normalizeTimeString(raw string, fallbackOffsetHours float64) *time.Time {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return nil
	}

	// Feeds that emit "2025-01-12 04:12:00" instead of a T separator.
	if !strings.Contains(candidate, "T") && strings.Contains(candidate, " ") {
		candidate = strings.Replace(candidate, " ", "T", 1)
	}

	if !zoneSuffixRe.MatchString(candidate) {
		candidate += formatOffset(fallbackOffsetHours)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// formatOffset renders an hour offset as a zone designator, e.g. 3 -> "+03:00",
// -5.5 -> "-05:30". Zero falls back to UTC.
func formatOffset(hours float64) string {
	if hours == 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return "Z"
	}
	sign := "+"
	if hours < 0 {
		sign = "-"
	}
	abs := math.Abs(hours)
	hh := int(abs)
	mm := int(math.Round((abs - float64(hh)) * 60))
	return fmt.Sprintf("%s%02d:%02d", sign, hh, mm)
}
