package domain

import "time"

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}

// CalendarDate returns the calendar date of t in loc as UTC midnight, so
// dates coming from different zones compare by day.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from one date to another.
func DaysBetween(from time.Time, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// DayWindow returns [start, end) of the calendar day containing t in loc.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
