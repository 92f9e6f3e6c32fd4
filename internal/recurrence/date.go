package recurrence

import (
	"fmt"
	"time"
)

// DateLayout is the YAML/JSON wire form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day and no timezone. All
// recurrence arithmetic happens on Dates so that DST transitions and
// host timezones never shift a result by a day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes out-of-range values the same way time.Date does
// (e.g. Feb 30 becomes Mar 2).
func NewDate(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime drops the clock and location of t, keeping the calendar day
// as seen in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("recurrence: invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// AddMonths follows time.AddDate rollover: Jan 31 + 1 month is Mar 3
// (or Mar 2 in a leap year).
func (d Date) AddMonths(n int) Date {
	return FromTime(d.Time().AddDate(0, n, 0))
}

// DaysUntil returns the signed number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int((other.Time().Unix() - d.Time().Unix()) / 86400)
}

func (d Date) Compare(other Date) int {
	return d.Time().Compare(other.Time())
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func maxDate(a, b Date) Date {
	if a.Before(b) {
		return b
	}
	return a
}
