package domain

import "time"

// RecurrenceRule describes how often a recurring task regenerates.
type RecurrenceRule string

// Supported recurrence rules. The empty rule means the task does not recur.
const (
	RecurrenceNone      RecurrenceRule = ""
	RecurrenceDaily     RecurrenceRule = "daily"
	RecurrenceWeekly    RecurrenceRule = "weekly"
	RecurrenceBiweekly  RecurrenceRule = "biweekly"
	RecurrenceMonthly   RecurrenceRule = "monthly"
	RecurrenceQuarterly RecurrenceRule = "quarterly"
	RecurrenceYearly    RecurrenceRule = "yearly"
)

// IsValid reports whether the rule is empty or one of the supported rules.
func (r RecurrenceRule) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly,
		RecurrenceMonthly, RecurrenceQuarterly, RecurrenceYearly:
		return true
	default:
		return false
	}
}

// AdvanceDate returns the next occurrence of date under rule.
//
// Day-based rules add a fixed number of days. Month-based rules add calendar
// months and clip to the last valid day of the target month, so Jan 31 plus
// one month is Feb 28 (Feb 29 in a leap year). Yearly keeps month and day; a
// Feb 29 anniversary landing on a non-leap year clips to Feb 28.
//
// The time of day and location of date are preserved. An empty or unknown
// rule returns date unchanged with ErrInvalidRecurrenceRule for unknown rules.
func AdvanceDate(date time.Time, rule RecurrenceRule) (time.Time, error) {
	switch rule {
	case RecurrenceDaily:
		return date.AddDate(0, 0, 1), nil
	case RecurrenceWeekly:
		return date.AddDate(0, 0, 7), nil
	case RecurrenceBiweekly:
		return date.AddDate(0, 0, 14), nil
	case RecurrenceMonthly:
		return addMonthsClipped(date, 1), nil
	case RecurrenceQuarterly:
		return addMonthsClipped(date, 3), nil
	case RecurrenceYearly:
		return addMonthsClipped(date, 12), nil
	case RecurrenceNone:
		return date, nil
	default:
		return date, ErrInvalidRecurrenceRule
	}
}

// addMonthsClipped adds months without letting time.AddDate normalize an
// overflowing day into the following month.
func addMonthsClipped(date time.Time, months int) time.Time {
	year, month, day := date.Date()
	hour, minute, sec := date.Clock()

	// First of the target month never overflows.
	first := time.Date(year, month+time.Month(months), 1, hour, minute, sec, date.Nanosecond(), date.Location())
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, date.Nanosecond(), date.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
