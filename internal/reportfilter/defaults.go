package reportfilter

import "time"

// Default computes the value pre-filled for a filter.
type Default interface {
	Resolve(now time.Time) string
}

// DefaultFunc adapts a function to Default.
type DefaultFunc func(now time.Time) string

// Resolve implements Default.
func (f DefaultFunc) Resolve(now time.Time) string {
	return f(now)
}

type literal string

func (l literal) Resolve(time.Time) string {
	return string(l)
}

// Literal returns a fixed default.
func Literal(value string) Default {
	return literal(value)
}

// Today resolves to the calendar date of now.
func Today() Default {
	return DefaultFunc(func(now time.Time) string {
		return now.Format(DateLayout)
	})
}

// FirstDayOfPreviousMonth resolves to day one of the month before now.
func FirstDayOfPreviousMonth() Default {
	return DefaultFunc(func(now time.Time) string {
		y, m, _ := now.Date()
		return time.Date(y, m-1, 1, 0, 0, 0, 0, now.Location()).Format(DateLayout)
	})
}

// MonthsAgo shifts now back by n calendar months. The day is clamped to the
// length of the target month, so Mar 31 minus one month is Feb 28 (or 29).
func MonthsAgo(n int) Default {
	return DefaultFunc(func(now time.Time) string {
		return addMonths(now, -n).Format(DateLayout)
	})
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}
