package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// coerceNumeric parses a cell into a float64 observation. Missing tokens
// and unparseable values come back as NaN; the second return reports
// whether the cell was a genuine parse failure rather than a declared
// missing value.
func coerceNumeric(cell string) (float64, bool) {
	trimmed := strings.TrimSpace(cell)
	if missingTokens[strings.ToLower(trimmed)] {
		return math.NaN(), false
	}

	// Tolerate thousands separators and percent suffixes
	cleaned := strings.ReplaceAll(trimmed, ",", "")
	percent := strings.HasSuffix(cleaned, "%")
	cleaned = strings.TrimSuffix(cleaned, "%")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN(), true
	}
	if percent {
		value /= 100
	}
	return value, false
}

// coerceTimestamp parses a cell into a time.Time, trying the supported
// layouts in order. A bare integer is treated as a day offset from the
// epoch base, which covers exported "day 0, day 1, ..." study files.
func coerceTimestamp(cell string) (time.Time, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, true
		}
	}

	if offset, err := strconv.Atoi(trimmed); err == nil && offset >= 0 {
		base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		return base.AddDate(0, 0, offset), true
	}

	return time.Time{}, false
}

// headerIndex finds the first header matching any alias, case-insensitively
func headerIndex(headers []string, aliases []string) int {
	for i, header := range headers {
		normalized := strings.ToLower(strings.TrimSpace(header))
		for _, alias := range aliases {
			if normalized == alias {
				return i
			}
		}
	}
	return -1
}
