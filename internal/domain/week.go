package domain

import "time"

// PipelineStartDate is the first day covered by the ingestion backfill.
// Gold weeks starting before it are dropped.
var PipelineStartDate = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the ISO week containing t, as a UTC date.
// A Wednesday maps to the Monday two days earlier, a Sunday to six days earlier.
func WeekStart(t time.Time) time.Time {
	d := dateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// SeasonOf returns the meteorological season of a month.
func SeasonOf(m time.Month) Season {
	switch m {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonFall
	}
}

// QuarterOf returns the calendar quarter, 1 through 4.
func QuarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}
