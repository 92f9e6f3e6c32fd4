package recurrence

import (
	"errors"
	"fmt"

	"github.com/samber/mo"
)

const (
	DefaultHorizonMonths = 3
	DefaultMaxCount      = 3
)

// ErrInvalidWindow is returned before any scan when the window or count
// cannot produce a well-defined result.
var ErrInvalidWindow = errors.New("invalid occurrence window")

// Window is the span of days searched for occurrences.
type Window struct {
	// Anchor is the day the search starts from, usually "today".
	Anchor Date
	// Floor is the event's own start date. Nothing before it is returned.
	Floor mo.Option[Date]
	// HorizonMonths is how far past the effective start to look. Zero is
	// a single-day window.
	HorizonMonths int
}

// Start returns max(Anchor, Floor). A zero anchor defers to the floor.
func (w Window) Start() (Date, error) {
	floor, hasFloor := w.Floor.Get()
	switch {
	case !w.Anchor.IsZero() && hasFloor:
		return maxDate(w.Anchor, floor), nil
	case !w.Anchor.IsZero():
		return w.Anchor, nil
	case hasFloor:
		return floor, nil
	default:
		return Date{}, fmt.Errorf("%w: neither anchor nor floor date set", ErrInvalidWindow)
	}
}

// End is the last day scanned, inclusive.
func (w Window) End() (Date, error) {
	start, err := w.Start()
	if err != nil {
		return Date{}, err
	}
	return start.AddMonths(w.HorizonMonths), nil
}

func (w Window) validate() error {
	if w.HorizonMonths < 0 {
		return fmt.Errorf("%w: horizon of %d months", ErrInvalidWindow, w.HorizonMonths)
	}
	_, err := w.Start()
	return err
}

// Enumerate scans every day of the window in order and returns the days
// rule matches, at most maxCount of them. An empty result is not an error.
//
// Unbounded-periodic rules stop scanning once maxCount matches are found;
// bounded-monthly rules are scanned across the whole window and then
// truncated.
func Enumerate(rule Rule, w Window, maxCount int) ([]Date, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return nil, fmt.Errorf("%w: max count %d must be positive", ErrInvalidWindow, maxCount)
	}
	if err := w.validate(); err != nil {
		return nil, err
	}

	start, _ := w.Start()
	end := start.AddMonths(w.HorizonMonths)
	early := rule.Cadence() == UnboundedPeriodic

	out := make([]Date, 0, maxCount)
	for d := start; !d.After(end); d = d.AddDays(1) {
		if !rule.Matches(d) {
			continue
		}
		out = append(out, d)
		if early && len(out) == maxCount {
			break
		}
	}

	if len(out) > maxCount {
		out = out[:maxCount]
	}
	return out, nil
}
