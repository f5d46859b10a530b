package utils

import (
	"fmt"
	"time"
)

// timestampLayouts are tried in order when rendering remote timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// FormatCurrency renders a price with two decimals, or a placeholder when
// the value is unknown.
func FormatCurrency(v *float64) string {
	if v == nil {
		return "$---.--"
	}
	return fmt.Sprintf("$%.2f", *v)
}

// FormatPercentage renders a daily change with an explicit sign for
// non-negative values. Unknown values get a placeholder.
func FormatPercentage(v *float64) string {
	if v == nil {
		return "--.--"
	}
	return fmt.Sprintf("%+.2f", *v)
}

// FormatTimestamp renders a timestamp string in local time at second
// granularity. A nil input means the event never happened; a string that
// cannot be parsed is returned unchanged rather than blanked.
func FormatTimestamp(ts *string) string {
	if ts == nil {
		return "Never"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *ts); err == nil {
			return t.Local().Format("Jan 2, 2006, 3:04:05 PM")
		}
	}
	return *ts
}

// FormatTime renders a time at the same granularity as FormatTimestamp.
func FormatTime(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return t.Local().Format("Jan 2, 2006, 3:04:05 PM")
}
