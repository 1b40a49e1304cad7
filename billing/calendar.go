/*
calendar.go - Calendar-day and weekday arithmetic

PURPOSE:

	Due dates, overdue distances and payday weekdays all move in whole
	calendar days. Date is a day-granularity value anchored to one fixed
	zone so that "days between" never depends on time-of-day or on the
	caller's local clock.

KEY OPERATIONS:
  - DaysBetween: full calendar days from one date to another
  - AddWeeks:    due-date extension in 7-day steps
  - ForwardDaysTo: walking distance to a target weekday, wrapping past
    the end of the week (Monday -> Friday = 4, Friday -> Monday = 3)

TIMEZONE:

	The business anchors all date math to a single zone. Every Date is
	normalized to midnight UTC; callers convert on the way in and out.

SEE ALSO:
  - latefee.go: days-late computation built on DaysBetween
  - paydayshift.go: weekday distance built on ForwardDaysTo
*/
package billing

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - A calendar day (no time-of-day component)
// =============================================================================

type Date struct {
	t time.Time
}

// NewDate creates a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day.
func Today() Date { return DateOf(time.Now()) }

// ParseDate parses a "2006-01-02" date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) IsZero() bool       { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date  { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddWeeks(n int) Date { return d.AddDays(n * 7) }

// Properties
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) String() string        { return d.t.Format("2006-01-02") }

// DaysBetween returns the number of full calendar days from 'from' to 'to'.
// Negative when 'to' is earlier.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// =============================================================================
// WEEKDAY DISTANCE - Forward walk through the week
// =============================================================================

// ForwardDaysTo returns how many days must be added to move from one
// weekday to another, always walking forward and wrapping past the end of
// the week. Same weekday yields 7 (a full cycle); callers that treat a
// same-day move as a no-op must reject it before calling.
func ForwardDaysTo(from, to time.Weekday) int {
	return (int(to)-int(from)+6)%7 + 1
}

// ParseWeekday parses a weekday name ("monday", "Friday", ...).
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
