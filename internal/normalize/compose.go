package normalize

import "time"

// InstantLayout is the UTC rendering used for normalized instants.
const InstantLayout = "2006-01-02T15:04:05.000Z"

// Compose combines a local date and clock time in loc and returns the UTC
// instant. It fails when the wall-clock time does not exist in loc, as
// inside a DST gap.
func Compose(d ParsedDate, t ParsedTime, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		panic(ErrContract + ": nil location")
	}
	local := time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)

	// time.Date silently shifts non-existent times; reject instead of guessing.
	if local.Year() != d.Year || local.Month() != d.Month || local.Day() != d.Day ||
		local.Hour() != t.Hour || local.Minute() != t.Minute {
		return time.Time{}, false
	}
	return local.UTC(), true
}

// FormatInstant renders t in UTC with millisecond precision.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}
