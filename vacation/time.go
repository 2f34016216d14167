package vacation

import "time"

// =============================================================================
// DATE UTILITIES - Calendar dates, always UTC midnight
// =============================================================================

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return Date(t.Year(), t.Month(), t.Day())
}

func StartOfYear(year int) time.Time { return Date(year, time.January, 1) }
func EndOfYear(year int) time.Time   { return Date(year, time.December, 31) }

// CurrentYear is the default year when a caller does not give one.
func CurrentYear(now func() time.Time) int {
	if now == nil {
		now = time.Now
	}
	return now().UTC().Year()
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
