package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParsedDate is a calendar date resolved in a target location.
type ParsedDate struct {
	Year  int
	Month time.Month
	Day   int
	// Anchor is local midnight of the date in the target location.
	Anchor time.Time
}

// String renders the date as YYYY-MM-DD.
func (d ParsedDate) String() string {
	return d.Anchor.Format("2006-01-02")
}

// ParsedTime is a wall-clock time of day.
type ParsedTime struct {
	Hour   int
	Minute int
}

// String renders the time as HH:MM.
func (t ParsedTime) String() string {
	return pad2(t.Hour) + ":" + pad2(t.Minute)
}

// relative phrases are checked in this order; "day after tomorrow" must win
// over "tomorrow".
var relativeDays = []struct {
	phrase string
	offset int
}{
	{"day after tomorrow", 2},
	{"today", 0},
	{"tomorrow", 1},
}

var weekdayTokens = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// absoluteLayouts are tried in order; the first that parses wins.
var absoluteLayouts = []string{
	"2006-01-02",      // YYYY-MM-DD
	"2/1/2006",        // DD/MM/YYYY
	"1/2/2006",        // MM/DD/YYYY
	"Jan 2, 2006",     // Mon DD, YYYY
	"January 2, 2006",
}

// ParseDatePhrase resolves a free-text date phrase against ref, viewed in loc.
func ParseDatePhrase(phrase string, loc *time.Location, ref time.Time) (ParsedDate, bool) {
	if loc == nil {
		panic(ErrContract + ": nil location")
	}
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return ParsedDate{}, false
	}

	local := ref.In(loc)
	for _, rel := range relativeDays {
		if strings.Contains(p, rel.phrase) {
			return dateAt(local.Year(), local.Month(), local.Day()+rel.offset, loc), true
		}
	}

	if wd, ok := nextWeekday(p); ok {
		ahead := (int(wd) - int(local.Weekday())) % 7
		if ahead <= 0 {
			ahead += 7
		}
		return dateAt(local.Year(), local.Month(), local.Day()+ahead, loc), true
	}

	for _, layout := range absoluteLayouts {
		if d, ok := parseAbsolute(layout, p, loc); ok {
			return d, true
		}
	}
	return ParsedDate{}, false
}

// nextWeekday matches "next <weekday>" on whole words.
func nextWeekday(p string) (time.Weekday, bool) {
	words := strings.FieldsFunc(p, func(r rune) bool { return !unicode.IsLetter(r) })
	hasNext := false
	for _, w := range words {
		if w == "next" {
			hasNext = true
			break
		}
	}
	if !hasNext {
		return 0, false
	}
	for _, w := range words {
		if wd, ok := weekdayTokens[w]; ok {
			return wd, true
		}
	}
	return 0, false
}

func parseAbsolute(layout, p string, loc *time.Location) (ParsedDate, bool) {
	t, err := time.ParseInLocation(layout, p, loc)
	if err != nil {
		return ParsedDate{}, false
	}
	return dateAt(t.Year(), t.Month(), t.Day(), loc), true
}

// dateAt normalizes overflowing days (Jan 32 -> Feb 1) through time.Date.
func dateAt(year int, month time.Month, day int, loc *time.Location) ParsedDate {
	anchor := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return ParsedDate{
		Year:   anchor.Year(),
		Month:  anchor.Month(),
		Day:    anchor.Day(),
		Anchor: anchor,
	}
}

var (
	clock24 = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b\s*(a\.?m\.?|p\.?m\.?)?`)
	clock12 = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)`)
)

// ParseTimePhrase reads a 24-hour "H:MM" or a 12-hour "H(:MM) am|pm" time.
func ParseTimePhrase(phrase string) (ParsedTime, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return ParsedTime{}, false
	}

	if m := clock24.FindStringSubmatch(p); m != nil && m[3] == "" {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return validTime(h, mm)
	}

	m := clock12.FindStringSubmatch(p)
	if m == nil {
		return ParsedTime{}, false
	}
	h, _ := strconv.Atoi(m[1])
	mm := 0
	if m[2] != "" {
		mm, _ = strconv.Atoi(m[2])
	}
	if h < 1 || h > 12 {
		return ParsedTime{}, false
	}
	if strings.HasPrefix(m[3], "p") {
		if h != 12 {
			h += 12
		}
	} else if h == 12 {
		h = 0
	}
	return validTime(h, mm)
}

func validTime(h, m int) (ParsedTime, bool) {
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ParsedTime{}, false
	}
	return ParsedTime{Hour: h, Minute: m}, true
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
