package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestParseDatePhrase_Relative(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")
	// Tuesday
	ref := time.Date(2026, 1, 20, 10, 0, 0, 0, loc)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"today", "today", "2026-01-20"},
		{"tomorrow", "tomorrow", "2026-01-21"},
		{"day after tomorrow", "day after tomorrow", "2026-01-22"},
		{"mixed case and padding", "  ToMoRRoW  ", "2026-01-21"},
		{"phrase containing tomorrow", "tomorrow morning", "2026-01-21"},
		{"day after tomorrow wins over tomorrow", "the day after tomorrow please", "2026-01-22"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDatePhrase(tt.input, loc, ref)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, 0, got.Anchor.Hour())
			assert.Equal(t, 0, got.Anchor.Minute())
			assert.Equal(t, loc, got.Anchor.Location())
		})
	}
}

func TestParseDatePhrase_TomorrowCrossesBoundaries(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")

	tests := []struct {
		name string
		ref  time.Time
		want string
	}{
		{"month end", time.Date(2026, 1, 31, 9, 0, 0, 0, loc), "2026-02-01"},
		{"year end", time.Date(2025, 12, 31, 23, 59, 0, 0, loc), "2026-01-01"},
		{"leap day", time.Date(2024, 2, 28, 8, 0, 0, 0, loc), "2024-02-29"},
		{"february end non-leap", time.Date(2026, 2, 28, 8, 0, 0, 0, loc), "2026-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDatePhrase("tomorrow", loc, tt.ref)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDatePhrase_ReferenceViewedInTargetZone(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")
	// 20:00 UTC is already 01:30 the next day in Kolkata.
	ref := time.Date(2026, 1, 20, 20, 0, 0, 0, time.UTC)

	got, ok := ParseDatePhrase("today", loc, ref)
	require.True(t, ok)
	assert.Equal(t, "2026-01-21", got.String())
}

func TestParseDatePhrase_DSTDayUsesCalendarArithmetic(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	// Clocks spring forward on 2026-03-08.
	ref := time.Date(2026, 3, 7, 23, 30, 0, 0, loc)

	got, ok := ParseDatePhrase("day after tomorrow", loc, ref)
	require.True(t, ok)
	assert.Equal(t, "2026-03-09", got.String())
}

func TestParseDatePhrase_NextWeekdayIsWithinAWeek(t *testing.T) {
	loc := mustLoad(t, "Europe/London")
	names := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, loc)

	for offset := 0; offset < 14; offset++ {
		ref := start.AddDate(0, 0, offset)
		today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
		for i, name := range names {
			got, ok := ParseDatePhrase("next "+name, loc, ref)
			require.True(t, ok, "next %s from %s", name, today.Format("2006-01-02"))

			assert.Equal(t, time.Weekday(i), got.Anchor.Weekday())
			assert.True(t, got.Anchor.After(today))
			assert.False(t, got.Anchor.After(today.AddDate(0, 0, 7)))
		}
	}
}

func TestParseDatePhrase_NextFridayFromTuesday(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")
	ref := time.Date(2026, 1, 20, 10, 0, 0, 0, loc)

	got, ok := ParseDatePhrase("Next Friday", loc, ref)
	require.True(t, ok)
	assert.Equal(t, "2026-01-23", got.String())

	got, ok = ParseDatePhrase("next tuesday", loc, ref)
	require.True(t, ok)
	assert.Equal(t, "2026-01-27", got.String(), "same weekday resolves a full week ahead")
}

func TestParseDatePhrase_WeekdayMatchesWholeWords(t *testing.T) {
	loc := mustLoad(t, "UTC")
	ref := time.Date(2026, 1, 20, 10, 0, 0, 0, loc)

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"abbreviation tues", "next tues", "2026-01-27", true},
		{"abbreviation thu", "next thu", "2026-01-22", true},
		{"abbreviation with punctuation", "next fri.", "2026-01-23", true},
		{"plural is not a weekday", "next fridays", "", false},
		{"weekday prefix inside another word", "next sundae", "", false},
		{"next without weekday falls through", "next week", "", false},
		{"weekday without next", "friday", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDatePhrase(tt.input, loc, ref)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestParseDatePhrase_AbsoluteFormats(t *testing.T) {
	loc := mustLoad(t, "Asia/Kolkata")
	ref := time.Date(2026, 1, 20, 10, 0, 0, 0, loc)

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"iso", "2026-01-25", "2026-01-25", true},
		{"day first", "25/01/2026", "2026-01-25", true},
		{"day first wins when both fit", "05/03/2026", "2026-03-05", true},
		{"month first when day first is invalid", "12/25/2026", "2026-12-25", true},
		{"short month name", "Jan 25, 2026", "2026-01-25", true},
		{"short month lowercase single digit day", "jan 5, 2026", "2026-01-05", true},
		{"long month name", "January 25, 2026", "2026-01-25", true},
		{"leap day in leap year", "29/02/2024", "2024-02-29", true},
		{"leap day in non-leap year", "29/02/2025", "", false},
		{"partial date", "29/02", "", false},
		{"impossible iso", "2026-02-30", "", false},
		{"vague", "sometime", "", false},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDatePhrase(tt.input, loc, ref)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.String())
				assert.Equal(t, 0, got.Anchor.Hour())
			}
		})
	}
}

func TestParseDatePhrase_NilLocationPanics(t *testing.T) {
	assert.Panics(t, func() {
		ParseDatePhrase("today", nil, time.Now())
	})
}

func TestParseTimePhrase(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   ParsedTime
		wantOK bool
	}{
		{"3pm", "3pm", ParsedTime{15, 0}, true},
		{"12am", "12am", ParsedTime{0, 0}, true},
		{"12pm", "12pm", ParsedTime{12, 0}, true},
		{"12:30 am", "12:30 am", ParsedTime{0, 30}, true},
		{"24 hour", "14:30", ParsedTime{14, 30}, true},
		{"24 hour midnight", "00:00", ParsedTime{0, 0}, true},
		{"24 hour single digit", "9:05", ParsedTime{9, 5}, true},
		{"24 hour inside text", "around 16:45 if possible", ParsedTime{16, 45}, true},
		{"12 hour with minutes", "3:30 pm", ParsedTime{15, 30}, true},
		{"12 hour without space", "3:30pm", ParsedTime{15, 30}, true},
		{"dotted suffix", "7 p.m.", ParsedTime{19, 0}, true},
		{"uppercase", "10 AM", ParsedTime{10, 0}, true},
		{"inside text", "at 11am sharp", ParsedTime{11, 0}, true},
		{"out of range hour", "25:00", ParsedTime{}, false},
		{"out of range minute", "10:75", ParsedTime{}, false},
		{"13pm", "13pm", ParsedTime{}, false},
		{"0am", "0am", ParsedTime{}, false},
		{"words only", "noon", ParsedTime{}, false},
		{"bare number", "3", ParsedTime{}, false},
		{"empty", "", ParsedTime{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimePhrase(tt.input)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsedTime_String(t *testing.T) {
	assert.Equal(t, "09:05", ParsedTime{9, 5}.String())
	assert.Equal(t, "15:00", ParsedTime{15, 0}.String())
}
