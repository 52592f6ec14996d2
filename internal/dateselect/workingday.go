package dateselect

import (
	"sync"
	"time"
)

// DateFormat is the wire format for all dates exchanged with the backend.
const DateFormat = "2006-01-02"

// marketTZ is the timezone that defines "today" for trading-day purposes.
// Using the tz database here instead of a hand-rolled DST window keeps the
// cutoff correct across rule changes.
const marketTZ = "America/New_York"

var (
	marketLocOnce sync.Once
	marketLoc     *time.Location
)

// MarketLocation returns the market timezone. Falls back to UTC if the tz
// database is unavailable; the working-day arithmetic still holds, only the
// day boundary shifts by a few hours.
func MarketLocation() *time.Location {
	marketLocOnce.Do(func() {
		loc, err := time.LoadLocation(marketTZ)
		if err != nil {
			loc = time.UTC
		}
		marketLoc = loc
	})
	return marketLoc
}

// PreviousWorkingDay returns the most recent completed trading day strictly
// before the reference instant: one calendar day back, then corrected off
// weekends (Sunday and Saturday both resolve to the preceding Friday). The
// result is a midnight date in the market timezone.
func PreviousWorkingDay(reference time.Time) time.Time {
	r := reference.In(MarketLocation())
	d := time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, r.Location())
	d = d.AddDate(0, 0, -1)
	switch d.Weekday() {
	case time.Sunday:
		d = d.AddDate(0, 0, -2)
	case time.Saturday:
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// IsAfterCutoff reports whether the candidate calendar day is strictly later
// than the previous working day relative to reference. Comparison is at
// day granularity, so the cutoff day itself is still selectable.
func IsAfterCutoff(year int, month time.Month, day int, reference time.Time) bool {
	cutoff := PreviousWorkingDay(reference)
	candidate := time.Date(year, month, day, 0, 0, 0, 0, MarketLocation())
	return candidate.After(cutoff)
}

// FormatDate renders a day-granular time as a backend date string.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// ParseDate parses a backend date string into a midnight market-time date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, MarketLocation())
}
