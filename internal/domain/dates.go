package domain

import "time"

// DateOf truncates t to midnight in loc, discarding the time of day.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween returns the whole calendar days from `from` to `to` in loc.
// Both instants are truncated to their date first, so 23:59 today and 00:01
// tomorrow are one day apart.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	a := DateOf(from, loc)
	b := DateOf(to, loc)
	// Build both at UTC midnight so DST transitions never shave an hour off.
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}
