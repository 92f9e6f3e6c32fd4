package recurrence

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/mo"
)

// ErrUnknownEvent is returned for event ids that are not in a Schedule.
var ErrUnknownEvent = errors.New("unknown event")

// Entry is one scheduled event.
type Entry struct {
	ID    string
	Name  string
	Rule  Rule
	Floor mo.Option[Date]
}

// Schedule maps event ids to their rules. It is immutable after
// NewSchedule and safe for concurrent use.
type Schedule struct {
	entries       map[string]Entry
	horizonMonths int
	maxCount      int
}

// NewSchedule validates every rule up front so lookups cannot fail on a
// malformed rule later.
func NewSchedule(entries []Entry, horizonMonths, maxCount int) (*Schedule, error) {
	if horizonMonths < 0 {
		return nil, fmt.Errorf("%w: horizon of %d months", ErrInvalidWindow, horizonMonths)
	}
	if maxCount <= 0 {
		return nil, fmt.Errorf("%w: max count %d must be positive", ErrInvalidWindow, maxCount)
	}

	s := &Schedule{
		entries:       make(map[string]Entry, len(entries)),
		horizonMonths: horizonMonths,
		maxCount:      maxCount,
	}
	for _, e := range entries {
		if e.ID == "" {
			return nil, errors.New("recurrence: schedule entry without id")
		}
		if _, dup := s.entries[e.ID]; dup {
			return nil, fmt.Errorf("recurrence: duplicate event id %q", e.ID)
		}
		if err := ValidateRule(e.Rule); err != nil {
			return nil, fmt.Errorf("event %q: %w", e.ID, err)
		}
		s.entries[e.ID] = e
	}
	return s, nil
}

// IDs returns the event ids in sorted order.
func (s *Schedule) IDs() []string {
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Schedule) Entry(id string) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

func (s *Schedule) Len() int { return len(s.entries) }

// UpcomingOccurrences lists the next dates of event id on or after asOf
// (and on or after the event's floor date).
func (s *Schedule) UpcomingOccurrences(id string, asOf Date) ([]Date, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, id)
	}
	return Enumerate(e.Rule, Window{
		Anchor:        asOf,
		Floor:         e.Floor,
		HorizonMonths: s.horizonMonths,
	}, s.maxCount)
}

// NextOccurrence returns the soonest upcoming date of event id, or None
// when the horizon holds no occurrence.
func (s *Schedule) NextOccurrence(id string, asOf Date) (mo.Option[Date], error) {
	dates, err := s.UpcomingOccurrences(id, asOf)
	if err != nil {
		return mo.None[Date](), err
	}
	if len(dates) == 0 {
		return mo.None[Date](), nil
	}
	return mo.Some(dates[0]), nil
}
