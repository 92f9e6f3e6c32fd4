package recurrence

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRule is returned when a rule is malformed. It is reported
	// at construction/validation time, never during a scan.
	ErrInvalidRule = errors.New("invalid recurrence rule")
)

// Cadence classifies how densely a rule produces matches.
type Cadence int

const (
	// BoundedMonthly rules match at most once per month; the engine scans
	// the whole window and truncates afterwards.
	BoundedMonthly Cadence = iota
	// UnboundedPeriodic rules (weekly, multi-week-of-month, explicit
	// dates) stop scanning as soon as enough matches are collected.
	UnboundedPeriodic
)

func (c Cadence) String() string {
	switch c {
	case BoundedMonthly:
		return "bounded-monthly"
	case UnboundedPeriodic:
		return "unbounded-periodic"
	default:
		return fmt.Sprintf("cadence(%d)", int(c))
	}
}

// Rule describes the calendar days an event occurs on. The set of
// implementations is closed: Weekly, MonthlyNth and DateSet.
type Rule interface {
	// Matches must depend on d alone.
	Matches(d Date) bool
	Cadence() Cadence
	// Validate reports ErrInvalidRule for malformed rules.
	Validate() error
	String() string

	isRule()
}

// Weekly matches every IntervalWeeks weeks on Weekday. When Anchor is set,
// only days on or after the anchor whose distance from it is a multiple
// of the period match. IntervalWeeks > 1 requires an anchor.
type Weekly struct {
	Weekday       time.Weekday
	IntervalWeeks int
	Anchor        Date
}

func (Weekly) isRule() {}

func (w Weekly) interval() int {
	if w.IntervalWeeks == 0 {
		return 1
	}
	return w.IntervalWeeks
}

func (w Weekly) Matches(d Date) bool {
	if d.Weekday() != w.Weekday {
		return false
	}
	if w.Anchor.IsZero() {
		return true
	}
	days := w.Anchor.DaysUntil(d)
	return days >= 0 && days%(7*w.interval()) == 0
}

func (Weekly) Cadence() Cadence { return UnboundedPeriodic }

func (w Weekly) Validate() error {
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, int(w.Weekday))
	}
	if w.IntervalWeeks < 0 {
		return fmt.Errorf("%w: interval %d must be positive", ErrInvalidRule, w.IntervalWeeks)
	}
	if w.interval() > 1 && w.Anchor.IsZero() {
		return fmt.Errorf("%w: every-%d-weeks rule needs an anchor date", ErrInvalidRule, w.interval())
	}
	if !w.Anchor.IsZero() && w.Anchor.Weekday() != w.Weekday {
		return fmt.Errorf("%w: anchor %s is a %s, not a %s", ErrInvalidRule, w.Anchor, w.Anchor.Weekday(), w.Weekday)
	}
	return nil
}

func (w Weekly) String() string {
	switch w.interval() {
	case 1:
		return "every " + w.Weekday.String()
	case 2:
		return "every other " + w.Weekday.String()
	default:
		return fmt.Sprintf("every %d weeks on %s", w.interval(), w.Weekday)
	}
}

// MonthlyNth matches Weekday when the day of month falls in one of the
// ordinal weeks: 1st is days 1-7, 2nd 8-14, 3rd 15-21, 4th 22-28. A fifth
// occurrence in a month is never matched.
type MonthlyNth struct {
	Weekday  time.Weekday
	Ordinals []int
}

func (MonthlyNth) isRule() {}

func (m MonthlyNth) Matches(d Date) bool {
	if d.Weekday() != m.Weekday {
		return false
	}
	for _, n := range m.Ordinals {
		lo := (n-1)*7 + 1
		if d.Day >= lo && d.Day <= lo+6 {
			return true
		}
	}
	return false
}

// Cadence is bounded-monthly for a single ordinal ("2nd Sunday") and
// unbounded-periodic for several ("1st and 3rd Wednesday").
func (m MonthlyNth) Cadence() Cadence {
	if len(m.Ordinals) == 1 {
		return BoundedMonthly
	}
	return UnboundedPeriodic
}

func (m MonthlyNth) Validate() error {
	if m.Weekday < time.Sunday || m.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, int(m.Weekday))
	}
	if len(m.Ordinals) == 0 {
		return fmt.Errorf("%w: monthly rule has no ordinal weeks", ErrInvalidRule)
	}
	for _, n := range m.Ordinals {
		if n < 1 || n > 4 {
			return fmt.Errorf("%w: ordinal week %d outside 1..4", ErrInvalidRule, n)
		}
	}
	return nil
}

func (m MonthlyNth) String() string {
	s := ""
	for i, n := range m.Ordinals {
		if i > 0 {
			s += " and "
		}
		s += ordinal(n)
	}
	return s + " " + m.Weekday.String() + " of the month"
}

// DateSet matches exactly the listed calendar dates.
type DateSet struct {
	Dates []Date
}

func (DateSet) isRule() {}

func (s DateSet) Matches(d Date) bool {
	for _, x := range s.Dates {
		if x == d {
			return true
		}
	}
	return false
}

func (DateSet) Cadence() Cadence { return UnboundedPeriodic }

func (s DateSet) Validate() error {
	if len(s.Dates) == 0 {
		return fmt.Errorf("%w: date list is empty", ErrInvalidRule)
	}
	for _, d := range s.Dates {
		if d.IsZero() {
			return fmt.Errorf("%w: date list contains a zero date", ErrInvalidRule)
		}
	}
	return nil
}

func (s DateSet) String() string {
	return fmt.Sprintf("%d specific dates", len(s.Dates))
}

// ValidateRule is Validate with a nil check.
func ValidateRule(r Rule) error {
	if r == nil {
		return fmt.Errorf("%w: rule is nil", ErrInvalidRule)
	}
	return r.Validate()
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", n)
	}
}
