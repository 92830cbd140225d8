package core

import (
	"strings"
	"time"
)

// DayFormat is the day-granularity date layout used across the app
// (habit completions, study streaks).
const DayFormat = "2006-01-02"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Day truncates t to its calendar day string.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}
