package folio

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used in the store.
const DateLayout = "2006-01-02"

// MonthLayout is the year-month bucket format used in report queries.
const MonthLayout = "2006-01"

// Today returns the current calendar date in UTC.
func Today() time.Time {
	return day(time.Now().UTC())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, WrapError(ErrCodeInvalidInput, "invalid date "+s+", expected YYYY-MM-DD", err)
	}
	return d, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// eachDay calls fn for every day from start to end inclusive.
func eachDay(start, end time.Time, fn func(time.Time) error) error {
	for d := day(start); !d.After(day(end)); d = d.AddDate(0, 0, 1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}
